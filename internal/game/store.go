package game

import (
	"context"
	"time"

	"bonk-blitz/internal/domain"
)

// RoundPatch is a partial-field update to a round document. Nil fields are
// left untouched.
type RoundPatch struct {
	Status    *domain.RoundStatus
	StartTime *time.Time
	EndTime   *time.Time
}

// RoundStore abstracts the shared round document store. All mutations are
// atomic per call; there are no cross-call transactions.
//
// Two store-level invariants replace what the stock client model left to
// convention:
//   - at most one round may be active (waiting or playing) at a time; Create
//     fails with ErrActiveRoundExists otherwise;
//   - players are keyed by ID, so UpsertPlayer is an atomic replace and two
//     concurrent submissions cannot lose each other's update.
type RoundStore interface {
	// Create persists a new round and returns its store-assigned ID.
	Create(ctx context.Context, round domain.Round) (string, error)
	// Get returns the round or domain.ErrRoundNotFound.
	Get(ctx context.Context, id string) (domain.Round, error)
	// Patch applies a partial-field update.
	Patch(ctx context.Context, id string, patch RoundPatch) error
	// AdvanceIndex moves currentQuestionIndex from the expected value to
	// from+1 and returns the new index. When the stored index differs it
	// returns the stored index and domain.ErrIndexConflict; no write happens.
	AdvanceIndex(ctx context.Context, id string, from int) (int, error)
	// UpsertPlayer inserts or replaces the player keyed by Player.ID.
	UpsertPlayer(ctx context.Context, id string, player domain.Player) error
	// RemovePlayer deletes the player keyed by ID; unknown players are a no-op.
	RemovePlayer(ctx context.Context, id string, playerID string) error
	// Delete removes the round document unconditionally.
	Delete(ctx context.Context, id string) error
	// WatchActive pushes the newest active round (nil when none) to the
	// returned channel after every committed write. The caller must invoke
	// cancel to release the subscription.
	WatchActive(ctx context.Context) (<-chan *domain.Round, func())
}
