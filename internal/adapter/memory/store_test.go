package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

func snap(i int) entity.Snapshot {
	return entity.Snapshot{
		Timestamp: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		Followers: int64(100 + i),
		Following: 50,
		Status:    entity.StatusLive,
	}
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(repository.DefaultRetention)
	ctx := context.Background()

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	history, err := s.ListHistory(ctx, 0, repository.OrderAsc)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStoreFIFOEviction(t *testing.T) {
	s := NewStore(repository.Retention{History: 3, Events: 2})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ev := entity.Event{Type: entity.EventFollowerGain, Diff: 1, Timestamp: snap(i).Timestamp, Value: int64(100 + i)}
		require.NoError(t, s.Append(ctx, snap(i), []entity.Event{ev}))

		history, err := s.ListHistory(ctx, 0, repository.OrderAsc)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(history), 3)
	}

	history, err := s.ListHistory(ctx, 0, repository.OrderAsc)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(107), history[0].Followers)
	assert.Equal(t, int64(109), history[2].Followers)

	events, err := s.ListEvents(ctx, 0, repository.OrderDesc)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(109), events[0].Value)
	assert.Equal(t, int64(108), events[1].Value)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(109), latest.Followers)
}

func TestStoreRejectsOutOfOrder(t *testing.T) {
	s := NewStore(repository.DefaultRetention)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, snap(5), nil))
	err := s.Append(ctx, snap(1), nil)
	require.ErrorIs(t, err, repository.ErrOutOfOrder)

	history, _ := s.ListHistory(ctx, 0, repository.OrderAsc)
	assert.Len(t, history, 1)
}

func TestNullStore(t *testing.T) {
	var s NullStore
	ctx := context.Background()

	assert.ErrorIs(t, s.Append(ctx, snap(1), nil), repository.ErrStoreUnavailable)
	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.ErrorIs(t, s.Ping(ctx), repository.ErrStoreUnavailable)
}
