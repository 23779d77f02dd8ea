package game

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"bonk-blitz/internal/domain"
)

// RoundArchiver persists finished rounds to history. Optional; archiving
// failures never fail the lifecycle transition itself.
type RoundArchiver interface {
	ArchiveRound(ctx context.Context, round domain.Round) error
}

// Lifecycle drives the admin-facing round transitions:
// create -> waiting -> playing -> finished -> deleted.
type Lifecycle struct {
	store     RoundStore
	questions QuestionSource
	archiver  RoundArchiver
	now       func() time.Time
	guard     *advanceGuard

	mu         sync.Mutex
	rnd        *rand.Rand
	autoStarts map[string]*time.Timer
}

// NewLifecycle builds a lifecycle manager. archiver may be nil.
func NewLifecycle(store RoundStore, questions QuestionSource, archiver RoundArchiver) *Lifecycle {
	return newLifecycleWithClock(store, questions, archiver, time.Now)
}

// newLifecycleWithClock allows deterministic timestamps in tests.
func newLifecycleWithClock(store RoundStore, questions QuestionSource, archiver RoundArchiver, now func() time.Time) *Lifecycle {
	return &Lifecycle{
		store:      store,
		questions:  questions,
		archiver:   archiver,
		now:        now,
		guard:      newAdvanceGuard(advanceCooldown),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		autoStarts: make(map[string]*time.Timer),
	}
}

// CreateRound samples a frozen question set and persists a new waiting round.
// The question snapshot is chosen once here and never re-sampled. When the
// settings carry a start delay, the manager schedules the automatic start
// itself; player clients never perform the start.
func (l *Lifecycle) CreateRound(ctx context.Context, settings domain.RoundSettings) (domain.Round, error) {
	if err := settings.Validate(); err != nil {
		return domain.Round{}, err
	}

	all, err := l.questions.ListQuestions(ctx)
	if err != nil {
		return domain.Round{}, err
	}
	l.mu.Lock()
	sampled, err := SampleQuestions(all, settings.QuestionCount, settings.Categories, l.rnd)
	l.mu.Unlock()
	if err != nil {
		return domain.Round{}, err
	}

	now := l.now()
	round := domain.Round{
		Name:                 settings.Name,
		Status:               domain.StatusWaiting,
		Players:              []domain.Player{},
		Questions:            sampled,
		CurrentQuestionIndex: 0,
		QuestionCount:        settings.QuestionCount,
		TimePerQuestion:      settings.TimePerQuestion,
		Categories:           settings.Categories,
		StartDelay:           settings.StartDelay,
		Prizes:               settings.Prizes,
		CreatedAt:            now,
		ScheduledStartTime:   now.Add(time.Duration(settings.StartDelay) * time.Second),
		UpdatedAt:            now,
	}

	id, err := l.store.Create(ctx, round)
	if err != nil {
		return domain.Round{}, err
	}
	round.ID = id

	if settings.StartDelay > 0 {
		l.scheduleAutoStart(id, time.Duration(settings.StartDelay)*time.Second)
	}
	return round, nil
}

// StartRound moves a waiting round to playing. Duplicate starts are no-ops;
// starting a finished round fails.
func (l *Lifecycle) StartRound(ctx context.Context, id string) error {
	round, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch round.Status {
	case domain.StatusPlaying:
		return nil
	case domain.StatusFinished:
		return domain.ErrRoundFinished
	}

	l.cancelAutoStart(id)
	status := domain.StatusPlaying
	startTime := l.now()
	return l.store.Patch(ctx, id, RoundPatch{Status: &status, StartTime: &startTime})
}

// EndRound moves a round to the terminal finished state. Idempotent.
func (l *Lifecycle) EndRound(ctx context.Context, id string) error {
	round, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if round.Status == domain.StatusFinished {
		return nil
	}

	l.cancelAutoStart(id)
	status := domain.StatusFinished
	endTime := l.now()
	if err := l.store.Patch(ctx, id, RoundPatch{Status: &status, EndTime: &endTime}); err != nil {
		return err
	}

	if l.archiver != nil {
		finished, err := l.store.Get(ctx, id)
		if err == nil {
			if err := l.archiver.ArchiveRound(ctx, finished); err != nil {
				log.Printf("archive round %s: %v", id, err)
			}
		}
	}
	return nil
}

// AdvanceQuestion moves the round past its current question. The
// authoritative index is read from the store, not from any cached snapshot,
// then the advance is pinned to that index via AdvanceFrom.
func (l *Lifecycle) AdvanceQuestion(ctx context.Context, id string) error {
	round, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			return nil
		}
		return err
	}
	if round.Status != domain.StatusPlaying {
		return nil
	}
	return l.AdvanceFrom(ctx, id, round.CurrentQuestionIndex)
}

// AdvanceFrom advances the round past the given question index, or finishes
// the round when that was the last question. The write is conditional on the
// index, so redundant triggers for the same question (timer expiry plus a
// manual click, or several clients' timers firing together) produce exactly
// one net transition. A short local cooldown guard additionally swallows
// rapid duplicate calls from this process without touching the store.
func (l *Lifecycle) AdvanceFrom(ctx context.Context, id string, index int) error {
	key := QuestionKey{RoundID: id, Index: index}
	if !l.guard.tryAcquire(key, l.now()) {
		return nil
	}

	round, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			return nil
		}
		return err
	}
	if round.Status != domain.StatusPlaying || round.CurrentQuestionIndex != index {
		return nil
	}

	if index+1 >= round.QuestionCount {
		return l.EndRound(ctx, id)
	}

	if _, err := l.store.AdvanceIndex(ctx, id, index); err != nil {
		// Another client won the advance; the snapshot push will catch us up.
		if errors.Is(err, domain.ErrIndexConflict) || errors.Is(err, domain.ErrRoundNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// DeleteRound removes the round document unconditionally. Subscribed clients
// treat the disappearance as "no active round".
func (l *Lifecycle) DeleteRound(ctx context.Context, id string) error {
	l.cancelAutoStart(id)
	return l.store.Delete(ctx, id)
}

func (l *Lifecycle) scheduleAutoStart(id string, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.autoStarts[id]; ok {
		prev.Stop()
	}
	l.autoStarts[id] = time.AfterFunc(delay, func() {
		l.mu.Lock()
		delete(l.autoStarts, id)
		l.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.StartRound(ctx, id); err != nil && !errors.Is(err, domain.ErrRoundNotFound) && !errors.Is(err, domain.ErrRoundFinished) {
			log.Printf("auto-start round %s: %v", id, err)
		}
	})
}

func (l *Lifecycle) cancelAutoStart(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.autoStarts[id]; ok {
		t.Stop()
		delete(l.autoStarts, id)
	}
}

// advanceCooldown is how long the local guard refuses a second advance for
// the same question.
const advanceCooldown = time.Second

// advanceGuard is the client-local re-entrancy guard: once an advance for a
// question key has been triggered, further triggers within the cooldown are
// dropped. Cross-client safety comes from the conditional index write, not
// from this guard.
type advanceGuard struct {
	cooldown time.Duration
	mu       sync.Mutex
	tripped  map[QuestionKey]time.Time
}

func newAdvanceGuard(cooldown time.Duration) *advanceGuard {
	return &advanceGuard{
		cooldown: cooldown,
		tripped:  make(map[QuestionKey]time.Time),
	}
}

func (g *advanceGuard) tryAcquire(key QuestionKey, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if at, ok := g.tripped[key]; ok && now.Sub(at) < g.cooldown {
		return false
	}
	for k, at := range g.tripped {
		if now.Sub(at) >= g.cooldown {
			delete(g.tripped, k)
		}
	}
	g.tripped[key] = now
	return true
}
