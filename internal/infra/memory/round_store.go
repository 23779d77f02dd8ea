package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

// RoundStore is the in-process implementation of game.RoundStore: a single
// round collection with snapshot-push subscriptions. Every mutation runs
// under one mutex, which is what makes the keyed player upsert and the
// conditional index advance atomic.
type RoundStore struct {
	now func() time.Time

	mu          sync.RWMutex
	rounds      map[string]*storedRound
	seq         int
	subscribers map[chan *domain.Round]struct{}
}

type storedRound struct {
	round domain.Round
	seq   int
}

func NewRoundStore() *RoundStore {
	return newRoundStoreWithClock(time.Now)
}

// newRoundStoreWithClock allows deterministic timestamps in tests.
func newRoundStoreWithClock(now func() time.Time) *RoundStore {
	return &RoundStore{
		now:         now,
		rounds:      make(map[string]*storedRound),
		subscribers: make(map[chan *domain.Round]struct{}),
	}
}

// Create persists a new round. At most one round may be active at a time;
// that is a store invariant here, not a caller convention.
func (s *RoundStore) Create(_ context.Context, round domain.Round) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rounds {
		if existing.round.Status.Active() {
			return "", domain.ErrActiveRoundExists
		}
	}

	id := uuid.NewString()
	round.ID = id
	round.UpdatedAt = s.now()
	s.seq++
	s.rounds[id] = &storedRound{round: cloneRound(round), seq: s.seq}
	s.broadcastLocked()
	return id, nil
}

func (s *RoundStore) Get(_ context.Context, id string) (domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return cloneRound(stored.round), nil
}

func (s *RoundStore) Patch(_ context.Context, id string, patch game.RoundPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[id]
	if !ok {
		return domain.ErrRoundNotFound
	}
	if patch.Status != nil {
		stored.round.Status = *patch.Status
	}
	if patch.StartTime != nil {
		t := *patch.StartTime
		stored.round.StartTime = &t
	}
	if patch.EndTime != nil {
		t := *patch.EndTime
		stored.round.EndTime = &t
	}
	stored.round.UpdatedAt = s.now()
	s.broadcastLocked()
	return nil
}

// AdvanceIndex performs the conditional advance: the write only happens when
// the stored index still equals from and the round is still playing.
func (s *RoundStore) AdvanceIndex(_ context.Context, id string, from int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[id]
	if !ok {
		return 0, domain.ErrRoundNotFound
	}
	if stored.round.Status != domain.StatusPlaying || stored.round.CurrentQuestionIndex != from {
		return stored.round.CurrentQuestionIndex, domain.ErrIndexConflict
	}
	stored.round.CurrentQuestionIndex = from + 1
	stored.round.UpdatedAt = s.now()
	s.broadcastLocked()
	return stored.round.CurrentQuestionIndex, nil
}

func (s *RoundStore) UpsertPlayer(_ context.Context, id string, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[id]
	if !ok {
		return domain.ErrRoundNotFound
	}
	player = clonePlayer(player)
	replaced := false
	for i, p := range stored.round.Players {
		if p.ID == player.ID {
			stored.round.Players[i] = player
			replaced = true
			break
		}
	}
	if !replaced {
		stored.round.Players = append(stored.round.Players, player)
	}
	stored.round.UpdatedAt = s.now()
	s.broadcastLocked()
	return nil
}

func (s *RoundStore) RemovePlayer(_ context.Context, id string, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rounds[id]
	if !ok {
		return domain.ErrRoundNotFound
	}
	for i, p := range stored.round.Players {
		if p.ID == playerID {
			stored.round.Players = append(stored.round.Players[:i], stored.round.Players[i+1:]...)
			stored.round.UpdatedAt = s.now()
			s.broadcastLocked()
			return nil
		}
	}
	return nil
}

func (s *RoundStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[id]; !ok {
		return nil
	}
	delete(s.rounds, id)
	s.broadcastLocked()
	return nil
}

// WatchActive subscribes to snapshot pushes of the newest active round, nil
// when none exists. The initial snapshot is delivered immediately.
func (s *RoundStore) WatchActive(_ context.Context) (<-chan *domain.Round, func()) {
	ch := make(chan *domain.Round, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.activeLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *RoundStore) activeLocked() *domain.Round {
	var best *storedRound
	for _, stored := range s.rounds {
		if !stored.round.Status.Active() {
			continue
		}
		if best == nil || stored.seq > best.seq {
			best = stored
		}
	}
	if best == nil {
		return nil
	}
	round := cloneRound(best.round)
	return &round
}

func (s *RoundStore) broadcastLocked() {
	active := s.activeLocked()
	for ch := range s.subscribers {
		select {
		case ch <- active:
		default:
			// Drop the stale snapshot so slow subscribers converge on
			// the latest one without blocking the writer.
			select {
			case <-ch:
			default:
			}
			ch <- active
		}
	}
}

func cloneRound(r domain.Round) domain.Round {
	out := r
	out.Questions = append([]domain.Question(nil), r.Questions...)
	out.Categories = append([]string(nil), r.Categories...)
	out.Prizes = append([]domain.Prize(nil), r.Prizes...)
	out.Players = make([]domain.Player, len(r.Players))
	for i, p := range r.Players {
		out.Players[i] = clonePlayer(p)
	}
	if r.StartTime != nil {
		t := *r.StartTime
		out.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	return out
}

func clonePlayer(p domain.Player) domain.Player {
	out := p
	out.Answers = append([]domain.Answer(nil), p.Answers...)
	return out
}
