package game

import (
	"math"
	"sort"
	"time"

	"bonk-blitz/internal/domain"
)

// ProjectLeaderboard derives the ranked scoreboard from a round's roster.
// It is a pure function of the players slice: the same input always yields
// the same ranking, and the input is never mutated.
//
// Ordering: score descending; ties broken by accuracy*1000 + (100 - avgTime)
// descending, so higher accuracy wins and, at equal accuracy, the faster
// average response wins.
func ProjectLeaderboard(roundID string, players []domain.Player, now time.Time) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, projectPlayer(p))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return tieBreak(entries[i]) > tieBreak(entries[j])
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		RoundID:   roundID,
		Entries:   entries,
		UpdatedAt: now,
	}
}

func projectPlayer(p domain.Player) domain.LeaderboardEntry {
	entry := domain.LeaderboardEntry{
		PlayerID:      p.ID,
		Name:          p.Name,
		WalletAddress: p.WalletAddress,
		Score:         p.Score,
		TotalAnswers:  len(p.Answers),
	}

	var totalTime float64
	for _, a := range p.Answers {
		if a.Correct {
			entry.CorrectAnswers++
		}
		totalTime += a.TimeTakenSeconds
	}
	if entry.TotalAnswers > 0 {
		entry.Accuracy = int(math.Round(100 * float64(entry.CorrectAnswers) / float64(entry.TotalAnswers)))
		entry.AverageTime = totalTime / float64(entry.TotalAnswers)
	}
	return entry
}

func tieBreak(e domain.LeaderboardEntry) float64 {
	return float64(e.Accuracy)*1000 + (100 - e.AverageTime)
}
