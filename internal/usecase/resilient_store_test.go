package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/adapter/memory"
	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/pkg/metrics"
)

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (f failingStore) Latest(context.Context) (*entity.Snapshot, error) { return nil, f.err }
func (f failingStore) Append(context.Context, entity.Snapshot, []entity.Event) error {
	return f.err
}
func (f failingStore) ListHistory(context.Context, int, repository.Order) ([]entity.Snapshot, error) {
	return nil, f.err
}
func (f failingStore) ListEvents(context.Context, int, repository.Order) ([]entity.Event, error) {
	return nil, f.err
}
func (f failingStore) Ping(context.Context) error { return f.err }

func TestResilientStoreAbsorbsFailures(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	s := NewResilientStore(failingStore{err: errors.New("connection refused")}, "postgres", zap.NewNop(), m)
	require.True(t, s.Available())

	latest, err := s.Latest(ctx)
	assert.NoError(t, err)
	assert.Nil(t, latest)
	assert.False(t, s.Available())

	assert.NoError(t, s.Append(ctx, snap(time.Now(), 1, 2, 3), nil))

	history, err := s.ListHistory(ctx, 0, repository.OrderAsc)
	assert.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	events, err := s.ListEvents(ctx, 0, repository.OrderDesc)
	assert.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	assert.Error(t, s.Ping(ctx))
	assert.Equal(t, "postgres", s.Backend())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("append")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("latest")))
}

func TestResilientStoreRecoversAvailability(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore(repository.DefaultRetention)
	s := NewResilientStore(inner, "memory", zap.NewNop(), nil)

	s.available.Store(false)
	_, err := s.ListHistory(ctx, 0, repository.OrderAsc)
	require.NoError(t, err)
	assert.True(t, s.Available())
}

func TestResilientStoreDropsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore(repository.DefaultRetention)
	s := NewResilientStore(inner, "memory", zap.NewNop(), nil)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, snap(t0, 10, 10, 0), nil))
	require.NoError(t, s.Append(ctx, snap(t0.Add(-time.Minute), 11, 10, 0), nil))

	history, _ := s.ListHistory(ctx, 0, repository.OrderAsc)
	require.Len(t, history, 1)
	assert.Equal(t, int64(10), history[0].Followers)
	assert.True(t, s.Available())
}

func TestResilientStoreOverNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewResilientStore(memory.NullStore{}, "none", zap.NewNop(), nil)

	latest, err := s.Latest(ctx)
	assert.NoError(t, err)
	assert.Nil(t, latest)
	assert.Error(t, s.Ping(ctx))
	assert.False(t, s.Available())
}

func TestResilientStoreRecord(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s := NewResilientStore(memory.NewStore(repository.DefaultRetention), "memory", zap.NewNop(), nil)
	assert.True(t, s.Record(ctx, snap(t0, 10, 10, 0), nil))
	assert.False(t, s.Record(ctx, snap(t0.Add(-time.Minute), 11, 10, 0), nil))

	null := NewResilientStore(memory.NullStore{}, "none", zap.NewNop(), nil)
	assert.False(t, null.Record(ctx, snap(t0, 10, 10, 0), nil))
	assert.False(t, null.Available())
}
