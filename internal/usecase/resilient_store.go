package usecase

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/pkg/metrics"
)

// ResilientStore wraps a SnapshotRepository so that storage failures never reach callers.
// Write errors are logged and dropped, read errors yield empty results. The outcome of the
// last backend call is kept so "no data yet" can be told apart from "store down".
type ResilientStore struct {
	inner     repository.SnapshotRepository
	backend   string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	available atomic.Bool
}

var _ repository.SnapshotRepository = (*ResilientStore)(nil)

// NewResilientStore wraps inner. backend is the name reported by Backend.
func NewResilientStore(inner repository.SnapshotRepository, backend string, logger *zap.Logger, m *metrics.Metrics) *ResilientStore {
	s := &ResilientStore{
		inner:   inner,
		backend: backend,
		logger:  logger,
		metrics: m,
	}
	s.available.Store(true)
	return s
}

// Backend returns the configured backend name.
func (s *ResilientStore) Backend() string {
	return s.backend
}

// Available reports whether the most recent backend call succeeded.
func (s *ResilientStore) Available() bool {
	return s.available.Load()
}

func (s *ResilientStore) Latest(ctx context.Context) (*entity.Snapshot, error) {
	latest, err := s.inner.Latest(ctx)
	if err != nil {
		s.fail("latest", err)
		return nil, nil
	}
	s.available.Store(true)
	return latest, nil
}

func (s *ResilientStore) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	s.Record(ctx, snapshot, events)
	return nil
}

// Record appends like Append and reports whether the snapshot was actually stored.
func (s *ResilientStore) Record(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) bool {
	err := s.inner.Append(ctx, snapshot, events)
	switch {
	case err == nil:
		s.available.Store(true)
		return true
	case errors.Is(err, repository.ErrOutOfOrder):
		s.logger.Warn("dropping out-of-order snapshot",
			zap.Time("timestamp", snapshot.Timestamp),
			zap.Error(err),
		)
	default:
		s.fail("append", err)
	}
	return false
}

func (s *ResilientStore) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	history, err := s.inner.ListHistory(ctx, limit, order)
	if err != nil {
		s.fail("list_history", err)
		return []entity.Snapshot{}, nil
	}
	s.available.Store(true)
	if history == nil {
		history = []entity.Snapshot{}
	}
	return history, nil
}

func (s *ResilientStore) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	events, err := s.inner.ListEvents(ctx, limit, order)
	if err != nil {
		s.fail("list_events", err)
		return []entity.Event{}, nil
	}
	s.available.Store(true)
	if events == nil {
		events = []entity.Event{}
	}
	return events, nil
}

// Ping checks the backend and updates availability. Unlike the other methods it reports the error.
func (s *ResilientStore) Ping(ctx context.Context) error {
	if err := s.inner.Ping(ctx); err != nil {
		s.available.Store(false)
		return err
	}
	s.available.Store(true)
	return nil
}

func (s *ResilientStore) fail(op string, err error) {
	s.available.Store(false)
	s.metrics.IncStoreError(op)
	if errors.Is(err, repository.ErrStoreUnavailable) {
		s.logger.Debug("snapshot store unavailable", zap.String("op", op), zap.String("backend", s.backend))
		return
	}
	s.logger.Warn("snapshot store operation failed",
		zap.String("op", op),
		zap.String("backend", s.backend),
		zap.Error(err),
	)
}
