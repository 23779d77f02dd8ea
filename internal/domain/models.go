package domain

import "time"

// RoundStatus is the lifecycle state of a round. Transitions only move
// forward: waiting -> playing -> finished.
type RoundStatus string

const (
	StatusWaiting  RoundStatus = "waiting"
	StatusPlaying  RoundStatus = "playing"
	StatusFinished RoundStatus = "finished"
)

// Active reports whether a round in this status counts as the live round.
func (s RoundStatus) Active() bool {
	return s == StatusWaiting || s == StatusPlaying
}

// Question is a frozen snapshot of one trivia question embedded in a round.
// Once embedded it is never re-sampled or mutated.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"question"`
	Options    []string `json:"options"`
	Correct    int      `json:"correct"` // index into Options
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// Answer is one player's response to one question. Append-only.
type Answer struct {
	QuestionIndex         int       `json:"questionIndex"`
	QuestionID            string    `json:"questionId"`
	SelectedOption        int       `json:"selectedOption"`
	Correct               bool      `json:"correct"`
	Points                int       `json:"points"`
	TimeTakenSeconds      float64   `json:"timeTaken"`
	TimeRemainingAtSubmit int       `json:"timeRemaining"`
	SubmittedAt           time.Time `json:"submittedAt"`
}

// Player is a participant's state within a round.
type Player struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	Score         int       `json:"score"`
	Answers       []Answer  `json:"answers"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// HasAnswered reports whether the player already answered the given question.
func (p Player) HasAnswered(questionIndex int) bool {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}

// Prize is an informational payout entry; nothing in the service distributes it.
type Prize struct {
	Rank     int    `json:"rank"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
}

// RoundSettings are the admin inputs when creating a round.
type RoundSettings struct {
	Name            string   `json:"name"`
	QuestionCount   int      `json:"questionCount"`
	TimePerQuestion int      `json:"timePerQuestion"` // seconds
	Categories      []string `json:"categories"`
	StartDelay      int      `json:"startDelay"` // seconds until auto-start
	Prizes          []Prize  `json:"prizes"`
}

// Round is the single shared mutable record for one live game session.
type Round struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Status               RoundStatus `json:"status"`
	Players              []Player    `json:"players"`
	Questions            []Question  `json:"questions"`
	CurrentQuestionIndex int         `json:"currentQuestionIndex"`
	QuestionCount        int         `json:"questionCount"`
	TimePerQuestion      int         `json:"timePerQuestion"`
	Categories           []string    `json:"categories"`
	StartDelay           int         `json:"startDelay"`
	Prizes               []Prize     `json:"prizes"`
	CreatedAt            time.Time   `json:"createdAt"`
	ScheduledStartTime   time.Time   `json:"scheduledStartTime"`
	StartTime            *time.Time  `json:"startTime"`
	EndTime              *time.Time  `json:"endTime"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// CurrentQuestion returns the question the round is on, or false when the
// round is not playing or the index is out of range.
func (r *Round) CurrentQuestion() (Question, bool) {
	if r == nil || r.Status != StatusPlaying {
		return Question{}, false
	}
	if r.CurrentQuestionIndex < 0 || r.CurrentQuestionIndex >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[r.CurrentQuestionIndex], true
}

// PlayerByID looks a player up in the embedded roster.
func (r *Round) PlayerByID(id string) (Player, bool) {
	if r == nil {
		return Player{}, false
	}
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// LeaderboardEntry is the ranked, derived view of one player.
type LeaderboardEntry struct {
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	WalletAddress  string  `json:"walletAddress,omitempty"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalAnswers   int     `json:"totalAnswers"`
	Accuracy       int     `json:"accuracy"` // percent, 0 when no answers
	AverageTime    float64 `json:"averageTime"`
	Rank           int     `json:"rank"`
}

// Leaderboard is the ordered scoreboard for a round.
type Leaderboard struct {
	RoundID   string             `json:"roundId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
