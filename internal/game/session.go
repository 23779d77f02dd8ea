package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bonk-blitz/internal/domain"
)

// Advancer triggers the question advance when a session's timer expires.
// The advance is pinned to the question index the timer ran for. Satisfied
// by *Lifecycle.
type Advancer interface {
	AdvanceFrom(ctx context.Context, roundID string, index int) error
}

// Update is what a session pushes to its transport after every store
// snapshot and every timer tick.
type Update struct {
	Round       *domain.Round      `json:"round"`
	Question    *domain.Question   `json:"question"`
	TimeLeft    int                `json:"timeLeft"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

// Session is the player-facing synchronization client for the active round.
// It subscribes to the store's snapshot push, derives the current question
// and leaderboard, runs the per-question countdown, and performs the
// player's own mutations (join, leave, answer).
type Session struct {
	store   RoundStore
	advance Advancer
	now     func() time.Time
	timer   *QuestionTimer

	mu          sync.Mutex
	round       *domain.Round
	player      *domain.Player
	inGame      bool
	answeredKey *QuestionKey // idempotency flag for the current question
	currentKey  QuestionKey
	hasQuestion bool
	closed      bool

	updates     chan Update
	cancelWatch func()
}

// NewSession builds a session and starts consuming snapshot pushes.
// Close must be called to release the subscription and the timer.
func NewSession(ctx context.Context, store RoundStore, advance Advancer, timerCfg TimerConfig) *Session {
	return newSessionWithClock(ctx, store, advance, timerCfg, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(ctx context.Context, store RoundStore, advance Advancer, timerCfg TimerConfig, now func() time.Time) *Session {
	s := &Session{
		store:   store,
		advance: advance,
		now:     now,
		updates: make(chan Update, 8),
	}
	s.timer = NewQuestionTimer(timerCfg, s.handleTick, s.handleExpire)

	snapshots, cancel := store.WatchActive(ctx)
	s.cancelWatch = cancel
	go func() {
		for round := range snapshots {
			s.handleSnapshot(round)
		}
	}()
	return s
}

// Updates returns the channel of derived view updates. Stale updates are
// dropped in favour of the latest when the consumer lags.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Close stops the timer and releases the store subscription.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.timer.Stop()
	s.cancelWatch()
}

// Join validates the inputs and appends this session's player to the active
// round with an atomic keyed upsert, so concurrent joins from other clients
// cannot clobber each other. The player record is remembered locally for
// later submissions.
func (s *Session) Join(ctx context.Context, name, walletAddress string) (domain.Player, error) {
	if err := domain.ValidatePlayerName(name); err != nil {
		return domain.Player{}, err
	}
	if err := domain.ValidateWalletAddress(walletAddress); err != nil {
		return domain.Player{}, err
	}

	s.mu.Lock()
	round := s.round
	s.mu.Unlock()
	if round == nil {
		return domain.Player{}, domain.ErrNoActiveRound
	}

	player := domain.Player{
		ID:            uuid.NewString(),
		Name:          name,
		WalletAddress: walletAddress,
		Score:         0,
		Answers:       []domain.Answer{},
		JoinedAt:      s.now(),
	}
	if err := s.store.UpsertPlayer(ctx, round.ID, player); err != nil {
		return domain.Player{}, fmt.Errorf("join round: %w", err)
	}

	s.mu.Lock()
	s.player = &player
	s.inGame = true
	s.answeredKey = nil
	s.mu.Unlock()
	return player, nil
}

// Leave removes this session's player from the round and clears the local
// membership state and timer.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	round, player := s.round, s.player
	s.player = nil
	s.inGame = false
	s.answeredKey = nil
	s.mu.Unlock()

	s.timer.Stop()
	if round == nil || player == nil {
		return nil
	}
	if err := s.store.RemovePlayer(ctx, round.ID, player.ID); err != nil {
		return fmt.Errorf("leave round: %w", err)
	}
	return nil
}

// SubmitAnswer records this player's answer to the current question. The
// second submission for the same question is silently ignored (accepted is
// false, no error). Points follow the remaining time on this session's own
// countdown.
func (s *Session) SubmitAnswer(ctx context.Context, optionIndex int, timeTaken float64) (domain.Answer, bool, error) {
	s.mu.Lock()
	if !s.inGame || s.player == nil {
		s.mu.Unlock()
		return domain.Answer{}, false, domain.ErrPlayerNotFound
	}
	round := s.round
	if round == nil || !s.hasQuestion {
		s.mu.Unlock()
		return domain.Answer{}, false, domain.ErrNoActiveRound
	}
	key := s.currentKey
	if s.answeredKey != nil && *s.answeredKey == key {
		s.mu.Unlock()
		return domain.Answer{}, false, nil
	}
	question := round.Questions[key.Index]
	player := *s.player
	s.mu.Unlock()

	timeLeft := s.timer.Remaining(key)
	correct := optionIndex == question.Correct
	points := ScoreAnswer(correct, timeLeft, round.TimePerQuestion)

	answer := domain.Answer{
		QuestionIndex:         key.Index,
		QuestionID:            question.ID,
		SelectedOption:        optionIndex,
		Correct:               correct,
		Points:                points,
		TimeTakenSeconds:      timeTaken,
		TimeRemainingAtSubmit: timeLeft,
		SubmittedAt:           s.now(),
	}

	updated := player
	updated.Score += points
	updated.Answers = append(append([]domain.Answer{}, player.Answers...), answer)

	if err := s.store.UpsertPlayer(ctx, round.ID, updated); err != nil {
		// Local state stays pre-answer; the next snapshot push reconciles.
		return domain.Answer{}, false, fmt.Errorf("submit answer: %w", err)
	}

	s.mu.Lock()
	s.player = &updated
	s.answeredKey = &key
	s.mu.Unlock()
	return answer, true, nil
}

// Player returns the locally remembered player record, if this session joined.
func (s *Session) Player() (domain.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return domain.Player{}, false
	}
	return *s.player, true
}

// handleSnapshot is the core derivation step, run on every snapshot push:
// re-derive the current question, restart the countdown only when the
// question key changed, and recompute the leaderboard.
func (s *Session) handleSnapshot(round *domain.Round) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.round = round

	if round == nil {
		// Round deleted or superseded: back to "no active round", silently.
		s.player = nil
		s.inGame = false
		s.answeredKey = nil
		s.hasQuestion = false
		s.mu.Unlock()

		s.timer.Stop()
		s.push(Update{})
		return
	}

	question, ok := round.CurrentQuestion()
	restart := false
	if ok {
		key := QuestionKey{RoundID: round.ID, Index: round.CurrentQuestionIndex}
		if !s.hasQuestion || key != s.currentKey {
			s.currentKey = key
			s.answeredKey = nil
			restart = true
		}
		s.hasQuestion = true
	} else {
		s.hasQuestion = false
	}

	update := Update{
		Round:       round,
		Leaderboard: ProjectLeaderboard(round.ID, round.Players, s.now()),
	}
	if ok {
		q := question
		update.Question = &q
	}
	key := s.currentKey
	seconds := round.TimePerQuestion
	s.mu.Unlock()

	if restart {
		s.timer.Start(key, seconds)
		update.TimeLeft = seconds
	} else if ok {
		update.TimeLeft = s.timer.Remaining(key)
	} else {
		s.timer.Stop()
	}

	s.push(update)
}

func (s *Session) handleTick(key QuestionKey, remaining int) {
	s.mu.Lock()
	if s.closed || s.round == nil || !s.hasQuestion || key != s.currentKey {
		s.mu.Unlock()
		return
	}
	round := s.round
	question := round.Questions[key.Index]
	update := Update{
		Round:       round,
		Question:    &question,
		TimeLeft:    remaining,
		Leaderboard: ProjectLeaderboard(round.ID, round.Players, s.now()),
	}
	s.mu.Unlock()

	s.push(update)
}

// handleExpire fires once per question after the reveal delay. Every
// connected session does this independently; the lifecycle's conditional
// write keeps the net effect to a single transition.
func (s *Session) handleExpire(key QuestionKey) {
	s.mu.Lock()
	round := s.round
	stale := s.closed || round == nil || round.ID != key.RoundID || round.Status != domain.StatusPlaying
	s.mu.Unlock()
	if stale || s.advance == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.advance.AdvanceFrom(ctx, key.RoundID, key.Index)
}

// push delivers an update, dropping the oldest queued one when the consumer
// is slow so the channel always converges on the latest view.
func (s *Session) push(update Update) {
	select {
	case s.updates <- update:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- update:
		default:
		}
	}
}
