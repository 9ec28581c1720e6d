package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

func at(min int) time.Time {
	return time.Date(2024, 3, 1, 12, min, 0, 0, time.UTC)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "database.json")
	s := NewStore(p, repository.DefaultRetention)
	ctx := context.Background()

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	events, err := s.ListEvents(ctx, 0, repository.OrderDesc)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err), "reads must not create the file")
}

func TestStore_AppendCreatesDocument(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "database.json")
	s := NewStore(p, repository.DefaultRetention)
	ctx := context.Background()

	first := entity.Snapshot{Timestamp: at(0), Username: "someone", Followers: 500, Following: 513, Posts: 3, Status: entity.StatusLive}
	require.NoError(t, s.Append(ctx, first, nil))

	second := entity.Snapshot{Timestamp: at(5), Username: "someone", Followers: 510, Following: 513, Posts: 3, Status: entity.StatusLive}
	ev := entity.Event{Type: entity.EventFollowerGain, Diff: 10, Timestamp: at(5), Value: 510}
	require.NoError(t, s.Append(ctx, second, []entity.Event{ev}))

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["history"], 2)
	assert.Len(t, doc["events"], 1)
	assert.Equal(t, "follower_gain", doc["events"][0]["type"])
	assert.NotContains(t, doc["history"][0], "error")

	// A second store instance over the same path sees the same data.
	other := NewStore(p, repository.DefaultRetention)
	latest, err := other.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(510), latest.Followers)
	assert.True(t, latest.Timestamp.Equal(at(5)))
}

func TestStore_Retention(t *testing.T) {
	p := filepath.Join(t.TempDir(), "database.json")
	s := NewStore(p, repository.Retention{History: 4, Events: 3})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		sn := entity.Snapshot{Timestamp: at(i), Followers: int64(i), Following: 1, Status: entity.StatusLive}
		ev := entity.Event{Type: entity.EventFollowerGain, Diff: 1, Timestamp: at(i), Value: int64(i)}
		require.NoError(t, s.Append(ctx, sn, []entity.Event{ev}))
	}

	history, err := s.ListHistory(ctx, 0, repository.OrderAsc)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, int64(8), history[0].Followers)
	assert.Equal(t, int64(11), history[3].Followers)

	events, err := s.ListEvents(ctx, 2, repository.OrderDesc)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(11), events[0].Value)
	assert.Equal(t, int64(10), events[1].Value)
}

func TestStore_OutOfOrder(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "database.json"), repository.DefaultRetention)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entity.Snapshot{Timestamp: at(10), Status: entity.StatusLive}, nil))
	err := s.Append(ctx, entity.Snapshot{Timestamp: at(1), Status: entity.StatusLive}, nil)
	assert.ErrorIs(t, err, repository.ErrOutOfOrder)
}

func TestStore_CorruptDocument(t *testing.T) {
	p := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	s := NewStore(p, repository.DefaultRetention)

	_, err := s.Latest(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.Ping(context.Background()))
}
