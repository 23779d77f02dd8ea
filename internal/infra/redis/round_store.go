package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
	"bonk-blitz/internal/infra/memory"
)

// RoundStore is a Redis-aware implementation of game.RoundStore.
// Notes:
//   - It delegates to the in-memory store for atomicity and the in-process
//     snapshot broadcast.
//   - Redis holds the round document mirror and the single "current round
//     pointer" key, giving operators visibility and other instances a
//     read-only view; extend with pub/sub fan-out for true distribution.
type RoundStore struct {
	inner  *memory.RoundStore
	client *redis.Client
	ttl    time.Duration
}

func NewRoundStore(client *redis.Client, ttl time.Duration) *RoundStore {
	return &RoundStore{
		inner:  memory.NewRoundStore(),
		client: client,
		ttl:    ttl,
	}
}

func (s *RoundStore) Create(ctx context.Context, round domain.Round) (string, error) {
	id, err := s.inner.Create(ctx, round)
	if err != nil {
		return "", err
	}
	s.mirror(ctx, id)
	return id, nil
}

func (s *RoundStore) Get(ctx context.Context, id string) (domain.Round, error) {
	return s.inner.Get(ctx, id)
}

func (s *RoundStore) Patch(ctx context.Context, id string, patch game.RoundPatch) error {
	if err := s.inner.Patch(ctx, id, patch); err != nil {
		return err
	}
	s.mirror(ctx, id)
	return nil
}

func (s *RoundStore) AdvanceIndex(ctx context.Context, id string, from int) (int, error) {
	next, err := s.inner.AdvanceIndex(ctx, id, from)
	if err != nil {
		return next, err
	}
	s.mirror(ctx, id)
	return next, nil
}

func (s *RoundStore) UpsertPlayer(ctx context.Context, id string, player domain.Player) error {
	if err := s.inner.UpsertPlayer(ctx, id, player); err != nil {
		return err
	}
	s.mirror(ctx, id)
	return nil
}

func (s *RoundStore) RemovePlayer(ctx context.Context, id string, playerID string) error {
	if err := s.inner.RemovePlayer(ctx, id, playerID); err != nil {
		return err
	}
	s.mirror(ctx, id)
	return nil
}

func (s *RoundStore) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.client.Del(ctx, s.roundKey(id)).Err()
	s.updateActivePointer(ctx)
	return nil
}

func (s *RoundStore) WatchActive(ctx context.Context) (<-chan *domain.Round, func()) {
	return s.inner.WatchActive(ctx)
}

// mirror writes the round document and the active pointer to Redis,
// best-effort: a Redis outage never fails the game mutation.
func (s *RoundStore) mirror(ctx context.Context, id string) {
	round, err := s.inner.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			_ = s.client.Del(ctx, s.roundKey(id)).Err()
		}
		return
	}
	if data, err := json.Marshal(round); err == nil {
		_ = s.client.Set(ctx, s.roundKey(id), data, s.ttl).Err()
	}
	s.updateActivePointer(ctx)
}

func (s *RoundStore) updateActivePointer(ctx context.Context) {
	snapshots, cancel := s.inner.WatchActive(ctx)
	active := <-snapshots
	cancel()
	if active == nil {
		_ = s.client.Del(ctx, activeKey).Err()
		return
	}
	_ = s.client.Set(ctx, activeKey, active.ID, s.ttl).Err()
}

const activeKey = "round:active"

func (s *RoundStore) roundKey(id string) string {
	return "round:" + id
}
