package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

func waitingRound(name string) domain.Round {
	return domain.Round{
		Name:            name,
		Status:          domain.StatusWaiting,
		Players:         []domain.Player{},
		Questions:       []domain.Question{{ID: "q1", Options: []string{"a", "b"}, Correct: 1}},
		QuestionCount:   1,
		TimePerQuestion: 10,
		CreatedAt:       time.Now(),
	}
}

func TestCreateEnforcesSingleActiveRound(t *testing.T) {
	ctx := context.Background()
	store := NewRoundStore()

	id, err := store.Create(ctx, waitingRound("first"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, waitingRound("second")); !errors.Is(err, domain.ErrActiveRoundExists) {
		t.Fatalf("expected ErrActiveRoundExists, got %v", err)
	}

	// Once the first round finishes, creating a new one is allowed again.
	finished := domain.StatusFinished
	if err := store.Patch(ctx, id, game.RoundPatch{Status: &finished}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if _, err := store.Create(ctx, waitingRound("second")); err != nil {
		t.Fatalf("create after finish: %v", err)
	}
}

func TestConcurrentUpsertsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewRoundStore()
	id, err := store.Create(ctx, waitingRound("race"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const players = 8
	const rounds = 50
	var wg sync.WaitGroup
	for p := 0; p < players; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			playerID := fmt.Sprintf("p%d", p)
			for i := 0; i < rounds; i++ {
				player := domain.Player{ID: playerID, Name: playerID, Score: i}
				if err := store.UpsertPlayer(ctx, id, player); err != nil {
					t.Errorf("upsert %s: %v", playerID, err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	round, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(round.Players) != players {
		t.Fatalf("lost players under concurrent upserts: got %d, want %d", len(round.Players), players)
	}
	for _, p := range round.Players {
		if p.Score != rounds-1 {
			t.Fatalf("player %s lost its last update: score %d", p.ID, p.Score)
		}
	}
}

func TestAdvanceIndexIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewRoundStore()

	round := waitingRound("cas")
	round.Status = domain.StatusPlaying
	round.QuestionCount = 3
	id, err := store.Create(ctx, round)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	next, err := store.AdvanceIndex(ctx, id, 0)
	if err != nil || next != 1 {
		t.Fatalf("advance from 0: next=%d err=%v", next, err)
	}

	// A lagging writer still pinned to index 0 must not move the pointer.
	next, err = store.AdvanceIndex(ctx, id, 0)
	if !errors.Is(err, domain.ErrIndexConflict) {
		t.Fatalf("expected ErrIndexConflict, got next=%d err=%v", next, err)
	}
	if next != 1 {
		t.Fatalf("conflict should report the stored index 1, got %d", next)
	}

	// Once finished, the index is frozen for good.
	finished := domain.StatusFinished
	if err := store.Patch(ctx, id, game.RoundPatch{Status: &finished}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if _, err := store.AdvanceIndex(ctx, id, 1); !errors.Is(err, domain.ErrIndexConflict) {
		t.Fatalf("expected ErrIndexConflict on finished round, got %v", err)
	}
}

func TestWatchActivePushesSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewRoundStore()

	snapshots, cancel := store.WatchActive(ctx)
	defer cancel()

	if initial := <-snapshots; initial != nil {
		t.Fatalf("expected nil initial snapshot, got %+v", initial)
	}

	id, err := store.Create(ctx, waitingRound("watched"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pushed := <-snapshots
	if pushed == nil || pushed.ID != id {
		t.Fatalf("expected created round, got %+v", pushed)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone := <-snapshots; gone != nil {
		t.Fatalf("expected nil after delete, got %+v", gone)
	}
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	store := NewRoundStore()
	id, err := store.Create(ctx, waitingRound("copies"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpsertPlayer(ctx, id, domain.Player{ID: "p1", Name: "P"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, _ := store.Get(ctx, id)
	first.Players[0].Score = 999
	first.Name = "mutated"

	second, _ := store.Get(ctx, id)
	if second.Players[0].Score != 0 || second.Name != "copies" {
		t.Fatalf("store handed out shared state: %+v", second)
	}
}
