// Package memory provides process-local snapshot stores.
package memory

import (
	"context"
	"sync"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

// Store keeps bounded history and events in memory. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	history   []entity.Snapshot
	events    []entity.Event
	retention repository.Retention
}

// NewStore creates an empty in-memory store.
func NewStore(retention repository.Retention) *Store {
	return &Store{retention: retention}
}

func (s *Store) Latest(ctx context.Context) (*entity.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil, nil
	}
	last := s.history[len(s.history)-1]
	return &last, nil
}

func (s *Store) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.history); n > 0 && snapshot.Timestamp.Before(s.history[n-1].Timestamp) {
		return repository.ErrOutOfOrder
	}
	s.history = repository.Bound(append(s.history, snapshot), s.retention.History)
	s.events = repository.Bound(append(s.events, events...), s.retention.Events)
	return nil
}

func (s *Store) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Window(s.history, limit, order), nil
}

func (s *Store) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return repository.Window(s.events, limit, order), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}
