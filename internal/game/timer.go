package game

import (
	"sync"
	"time"
)

// QuestionKey identifies one question slot within one round. The timer only
// restarts when this key changes; unrelated snapshot updates must not reset
// the visible countdown.
type QuestionKey struct {
	RoundID string
	Index   int
}

// TimerConfig tunes the countdown. The defaults match the game: one tick per
// second and a two second correct-answer reveal before auto-advance.
type TimerConfig struct {
	TickInterval time.Duration
	RevealDelay  time.Duration
}

func (c TimerConfig) withDefaults() TimerConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.RevealDelay < 0 {
		c.RevealDelay = 0
	}
	return c
}

// QuestionTimer is the per-client countdown for the current question. At most
// one run is live at a time: Start cancels the previous run before anything
// else, and a cancelled run can never fire its callbacks afterwards.
type QuestionTimer struct {
	cfg      TimerConfig
	onTick   func(key QuestionKey, remaining int)
	onExpire func(key QuestionKey)

	mu        sync.Mutex
	gen       int
	key       QuestionKey
	remaining int
	stop      chan struct{}
}

// NewQuestionTimer builds a timer. onTick fires after every elapsed second
// with the seconds left; onExpire fires once per run, RevealDelay after the
// countdown reaches zero. Either callback may be nil.
func NewQuestionTimer(cfg TimerConfig, onTick func(QuestionKey, int), onExpire func(QuestionKey)) *QuestionTimer {
	return &QuestionTimer{
		cfg:      cfg.withDefaults(),
		onTick:   onTick,
		onExpire: onExpire,
	}
}

// Start begins a fresh countdown for the given question, cancelling any run
// already in flight.
func (t *QuestionTimer) Start(key QuestionKey, seconds int) {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.key = key
	t.remaining = seconds
	stop := make(chan struct{})
	t.stop = stop
	gen := t.gen
	t.mu.Unlock()

	go t.run(gen, key, seconds, stop)
}

// Stop cancels the current run, if any.
func (t *QuestionTimer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.mu.Unlock()
}

// Remaining returns the seconds left for the given question key, or zero when
// no run for that key is live.
func (t *QuestionTimer) Remaining(key QuestionKey) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil || t.key != key {
		return 0
	}
	return t.remaining
}

// Key returns the question the timer is currently counting for.
func (t *QuestionTimer) Key() (QuestionKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.key, t.stop != nil
}

func (t *QuestionTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *QuestionTimer) run(gen int, key QuestionKey, seconds int, stop chan struct{}) {
	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	remaining := seconds
	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		remaining--
		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.remaining = remaining
		t.mu.Unlock()

		if t.onTick != nil {
			t.onTick(key, remaining)
		}
	}

	// Give players a moment to see the correct answer before advancing.
	reveal := time.NewTimer(t.cfg.RevealDelay)
	defer reveal.Stop()
	select {
	case <-stop:
		return
	case <-reveal.C:
	}

	t.mu.Lock()
	stale := t.gen != gen
	if !stale {
		t.stop = nil
	}
	t.mu.Unlock()
	if stale {
		return
	}

	if t.onExpire != nil {
		t.onExpire(key)
	}
}
