package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
	"bonk-blitz/internal/infra/memory"
)

func newTestLifecycle(t *testing.T, bankSize int) (*game.Lifecycle, *memory.RoundStore) {
	t.Helper()
	store := memory.NewRoundStore()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(questionBank(bankSize, "general")), 5*time.Minute)
	return game.NewLifecycle(store, bank, nil), store
}

func testSettings(questionCount int) domain.RoundSettings {
	return domain.RoundSettings{
		Name:            "Friday Blitz",
		QuestionCount:   questionCount,
		TimePerQuestion: 10,
		Categories:      []string{"general"},
	}
}

func TestCreateRoundInsufficientQuestions(t *testing.T) {
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 12)

	_, err := lifecycle.CreateRound(ctx, testSettings(20))
	if !errors.Is(err, domain.ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}

	// No document may exist after the failed precondition.
	snapshots, cancel := store.WatchActive(ctx)
	defer cancel()
	if active := <-snapshots; active != nil {
		t.Fatalf("round was created despite insufficient questions: %+v", active)
	}
}

func TestCreateRoundValidatesSettings(t *testing.T) {
	ctx := context.Background()
	lifecycle, _ := newTestLifecycle(t, 50)

	bad := []domain.RoundSettings{
		{Name: "", QuestionCount: 10, TimePerQuestion: 10, Categories: []string{"general"}},
		{Name: "x", QuestionCount: 2, TimePerQuestion: 10, Categories: []string{"general"}},
		{Name: "x", QuestionCount: 10, TimePerQuestion: 120, Categories: []string{"general"}},
		{Name: "x", QuestionCount: 10, TimePerQuestion: 10, Categories: nil},
		{Name: "x", QuestionCount: 10, TimePerQuestion: 10, Categories: []string{"general"}, StartDelay: -1},
	}
	for i, settings := range bad {
		if _, err := lifecycle.CreateRound(ctx, settings); !errors.Is(err, domain.ErrInvalidSettings) {
			t.Fatalf("case %d: expected ErrInvalidSettings, got %v", i, err)
		}
	}
}

func TestCreateRoundRejectsSecondActive(t *testing.T) {
	ctx := context.Background()
	lifecycle, _ := newTestLifecycle(t, 50)

	if _, err := lifecycle.CreateRound(ctx, testSettings(5)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := lifecycle.CreateRound(ctx, testSettings(5)); !errors.Is(err, domain.ErrActiveRoundExists) {
		t.Fatalf("expected ErrActiveRoundExists, got %v", err)
	}
}

func TestStartAndEndAreIdempotent(t *testing.T) {
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 50)

	round, err := lifecycle.CreateRound(ctx, testSettings(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := lifecycle.StartRound(ctx, round.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := lifecycle.StartRound(ctx, round.ID); err != nil {
		t.Fatalf("duplicate start should be a no-op, got %v", err)
	}

	got, _ := store.Get(ctx, round.ID)
	if got.Status != domain.StatusPlaying || got.StartTime == nil {
		t.Fatalf("expected playing with start time, got %+v", got)
	}

	if err := lifecycle.EndRound(ctx, round.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := lifecycle.EndRound(ctx, round.ID); err != nil {
		t.Fatalf("duplicate end should be a no-op, got %v", err)
	}
	if err := lifecycle.StartRound(ctx, round.ID); !errors.Is(err, domain.ErrRoundFinished) {
		t.Fatalf("expected ErrRoundFinished when starting a finished round, got %v", err)
	}
}

func TestAdvanceRunsToFinished(t *testing.T) {
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 50)

	round, err := lifecycle.CreateRound(ctx, testSettings(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lifecycle.StartRound(ctx, round.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := lifecycle.AdvanceQuestion(ctx, round.ID); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		got, _ := store.Get(ctx, round.ID)
		if got.CurrentQuestionIndex != i+1 {
			t.Fatalf("after advance %d expected index %d, got %d", i, i+1, got.CurrentQuestionIndex)
		}
	}

	// Advancing past the last question finishes the round instead of
	// running the index out of bounds.
	if err := lifecycle.AdvanceQuestion(ctx, round.ID); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	got, _ := store.Get(ctx, round.ID)
	if got.Status != domain.StatusFinished {
		t.Fatalf("expected finished, got %s", got.Status)
	}
	if got.CurrentQuestionIndex != 4 {
		t.Fatalf("index escaped bounds: %d", got.CurrentQuestionIndex)
	}

	// Finished is terminal: further advances are no-ops.
	if err := lifecycle.AdvanceQuestion(ctx, round.ID); err != nil {
		t.Fatalf("advance on finished: %v", err)
	}
	after, _ := store.Get(ctx, round.ID)
	if after.CurrentQuestionIndex != 4 || after.Status != domain.StatusFinished {
		t.Fatalf("finished round changed: %+v", after)
	}
}

func TestAdvanceDoubleTriggerSingleTransition(t *testing.T) {
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 50)

	round, err := lifecycle.CreateRound(ctx, testSettings(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lifecycle.StartRound(ctx, round.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Timer expiry and a manual click both fire for question 0 inside the
	// cooldown window; only one net transition may result.
	if err := lifecycle.AdvanceFrom(ctx, round.ID, 0); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if err := lifecycle.AdvanceFrom(ctx, round.ID, 0); err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if err := lifecycle.AdvanceQuestion(ctx, round.ID); err != nil {
		t.Fatalf("manual advance: %v", err)
	}

	got, _ := store.Get(ctx, round.ID)
	if got.CurrentQuestionIndex != 2 {
		// AdvanceFrom(0) twice nets one transition; the manual advance on
		// question 1 is a separate, legitimate one.
		t.Fatalf("expected index 2 (one auto + one manual), got %d", got.CurrentQuestionIndex)
	}
}

func TestAutoStartAfterDelay(t *testing.T) {
	if testing.Short() {
		t.Skip("auto-start test sleeps through the real delay")
	}
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 50)

	settings := testSettings(5)
	settings.StartDelay = 1
	round, err := lifecycle.CreateRound(ctx, settings)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.Get(ctx, round.ID)
	if got.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting before the delay, got %s", got.Status)
	}
	if got.ScheduledStartTime.Before(got.CreatedAt) {
		t.Fatalf("scheduled start precedes creation: %+v", got)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		got, _ = store.Get(ctx, round.ID)
		if got.Status == domain.StatusPlaying {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("round never auto-started, status %s", got.Status)
}

func TestDeleteRound(t *testing.T) {
	ctx := context.Background()
	lifecycle, store := newTestLifecycle(t, 50)

	round, err := lifecycle.CreateRound(ctx, testSettings(5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lifecycle.DeleteRound(ctx, round.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, round.ID); !errors.Is(err, domain.ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound after delete, got %v", err)
	}
}
