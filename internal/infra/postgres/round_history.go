package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

// RoundHistory archives finished rounds and serves the round-history view.
type RoundHistory struct {
	pool *pgxpool.Pool
}

func NewRoundHistory(pool *pgxpool.Pool) *RoundHistory {
	return &RoundHistory{pool: pool}
}

// HistoryEntry is one archived round with its summary stats.
type HistoryEntry struct {
	RoundID     string       `json:"roundId"`
	Name        string       `json:"name"`
	PlayerCount int          `json:"playerCount"`
	WinnerName  string       `json:"winnerName,omitempty"`
	PrizePool   int          `json:"prizePool"`
	EndedAt     time.Time    `json:"endedAt"`
	Round       domain.Round `json:"round"`
}

// ArchiveRound stores the full finished round document plus the summary
// columns the history view sorts and filters on. Re-archiving the same
// round overwrites the previous row.
func (h *RoundHistory) ArchiveRound(ctx context.Context, round domain.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}

	winner := ""
	lb := game.ProjectLeaderboard(round.ID, round.Players, time.Now())
	if len(lb.Entries) > 0 {
		winner = lb.Entries[0].Name
	}
	prizePool := 0
	for _, p := range round.Prizes {
		prizePool += p.Amount
	}
	endedAt := time.Now()
	if round.EndTime != nil {
		endedAt = *round.EndTime
	}

	_, err = h.pool.Exec(ctx, `
		INSERT INTO round_history (round_id, name, player_count, winner_name, prize_pool, ended_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (round_id) DO UPDATE SET
			player_count = EXCLUDED.player_count,
			winner_name = EXCLUDED.winner_name,
			prize_pool = EXCLUDED.prize_pool,
			ended_at = EXCLUDED.ended_at,
			data = EXCLUDED.data`,
		round.ID, round.Name, len(round.Players), winner, prizePool, endedAt, data)
	if err != nil {
		return fmt.Errorf("archive round: %w", err)
	}
	return nil
}

// RecentRounds returns the most recently finished rounds, newest first.
func (h *RoundHistory) RecentRounds(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.pool.Query(ctx, `
		SELECT round_id, name, player_count, winner_name, prize_pool, ended_at, data
		FROM round_history ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("round history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var raw []byte
		if err := rows.Scan(&e.RoundID, &e.Name, &e.PlayerCount, &e.WinnerName, &e.PrizePool, &e.EndedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Round); err != nil {
			return nil, fmt.Errorf("unmarshal history round: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("round history: %w", err)
	}
	return entries, nil
}
