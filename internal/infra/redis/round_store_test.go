package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

func newTestRoundStore(t *testing.T) (*RoundStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRoundStore(client, time.Minute), mr
}

func testRound() domain.Round {
	return domain.Round{
		Name:            "mirror",
		Status:          domain.StatusWaiting,
		Players:         []domain.Player{},
		Questions:       []domain.Question{{ID: "q1", Options: []string{"a", "b"}, Correct: 0}},
		QuestionCount:   1,
		TimePerQuestion: 10,
		CreatedAt:       time.Now(),
	}
}

func TestRoundStoreMirrorsDocumentAndActivePointer(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRoundStore(t)

	id, err := store.Create(ctx, testRound())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("round:" + id) {
		t.Fatal("expected round document mirrored to redis")
	}
	if got, _ := mr.Get("round:active"); got != id {
		t.Fatalf("expected active pointer %s, got %q", id, got)
	}
}

func TestRoundStoreClearsActivePointerOnFinish(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRoundStore(t)

	id, err := store.Create(ctx, testRound())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	finished := domain.StatusFinished
	if err := store.Patch(ctx, id, game.RoundPatch{Status: &finished}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if mr.Exists("round:active") {
		t.Fatal("expected active pointer cleared after finish")
	}
	// The document mirror stays for history inspection until TTL.
	if !mr.Exists("round:" + id) {
		t.Fatal("expected finished round document to remain mirrored")
	}
}

func TestRoundStoreDeleteRemovesKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRoundStore(t)

	id, err := store.Create(ctx, testRound())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("round:" + id) {
		t.Fatal("expected round key removed")
	}
	if mr.Exists("round:active") {
		t.Fatal("expected active pointer removed")
	}
}
