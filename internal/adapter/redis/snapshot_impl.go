package redis

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

const maxAppendAttempts = 5

// SnapshotRepoImpl stores history and events as two capped Redis lists of JSON entries.
// Appends run in MULTI/EXEC so both lists change together.
type SnapshotRepoImpl struct {
	client     *redis.Client
	historyKey string
	eventsKey  string
	retention  repository.Retention
}

// NewSnapshotRepo creates a new instance of SnapshotRepoImpl using keys under prefix.
func NewSnapshotRepo(client *redis.Client, prefix string, retention repository.Retention) *SnapshotRepoImpl {
	return &SnapshotRepoImpl{
		client:     client,
		historyKey: prefix + ":history",
		eventsKey:  prefix + ":events",
		retention:  retention,
	}
}

// Latest reads the tail of the history list.
func (r *SnapshotRepoImpl) Latest(ctx context.Context) (*entity.Snapshot, error) {
	raw, err := r.client.LIndex(ctx, r.historyKey, -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s entity.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return &s, nil
}

// Append pushes the snapshot and its events and trims both lists, watching the history key
// so that an out-of-order check and the write are not interleaved with another writer.
func (r *SnapshotRepoImpl) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	snapRaw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	eventsRaw := make([]interface{}, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		eventsRaw = append(eventsRaw, b)
	}

	txf := func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, r.historyKey, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var last entity.Snapshot
			if err := json.Unmarshal([]byte(raw), &last); err == nil && snapshot.Timestamp.Before(last.Timestamp) {
				return repository.ErrOutOfOrder
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, r.historyKey, snapRaw)
			if r.retention.History > 0 {
				pipe.LTrim(ctx, r.historyKey, int64(-r.retention.History), -1)
			}
			if len(eventsRaw) > 0 {
				pipe.RPush(ctx, r.eventsKey, eventsRaw...)
				if r.retention.Events > 0 {
					pipe.LTrim(ctx, r.eventsKey, int64(-r.retention.Events), -1)
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendAttempts; i++ {
		err = r.client.Watch(ctx, txf, r.historyKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("append snapshot: %w", err)
}

// ListHistory returns snapshots from the history list.
func (r *SnapshotRepoImpl) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	raws, err := r.lrange(ctx, r.historyKey, limit)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Snapshot, 0, len(raws))
	for _, raw := range raws {
		var s entity.Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, s)
	}
	return repository.Window(out, 0, order), nil
}

// ListEvents returns events from the events list.
func (r *SnapshotRepoImpl) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	raws, err := r.lrange(ctx, r.eventsKey, limit)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Event, 0, len(raws))
	for _, raw := range raws {
		var ev entity.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return repository.Window(out, 0, order), nil
}

func (r *SnapshotRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// lrange reads the newest limit entries in chronological order.
func (r *SnapshotRepoImpl) lrange(ctx context.Context, key string, limit int) ([]string, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	return r.client.LRange(ctx, key, start, -1).Result()
}
