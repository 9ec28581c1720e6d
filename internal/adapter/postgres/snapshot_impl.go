package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

// appendLockID serialises appends across processes sharing the database.
const appendLockID = 0x666f6c6c6f77

// SnapshotRepoImpl provides a concrete implementation for the SnapshotRepository interface using PostgreSQL.
// History and events live in two tables; an append writes both in one transaction and then
// trims each table to its retention cap.
type SnapshotRepoImpl struct {
	db        *pgxpool.Pool
	retention repository.Retention
}

// NewSnapshotRepo creates a new instance of SnapshotRepoImpl.
func NewSnapshotRepo(db *pgxpool.Pool, retention repository.Retention) *SnapshotRepoImpl {
	return &SnapshotRepoImpl{db: db, retention: retention}
}

// Latest retrieves the newest history row.
func (r *SnapshotRepoImpl) Latest(ctx context.Context) (*entity.Snapshot, error) {
	query := `
		SELECT ts, username, followers, following, posts, status, error
		FROM history
		ORDER BY ts DESC, id DESC
		LIMIT 1;
	`
	s, err := scanSnapshot(r.db.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Append stores the snapshot and its events within a single transaction.
func (r *SnapshotRepoImpl) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(appendLockID)); err != nil {
		return fmt.Errorf("acquire append lock: %w", err)
	}

	var lastTS time.Time
	err = tx.QueryRow(ctx, `SELECT ts FROM history ORDER BY ts DESC, id DESC LIMIT 1`).Scan(&lastTS)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	if err == nil && snapshot.Timestamp.Before(lastTS) {
		return repository.ErrOutOfOrder
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO history (ts, username, followers, following, posts, status, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snapshot.Timestamp, snapshot.Username, snapshot.Followers, snapshot.Following,
		snapshot.Posts, string(snapshot.Status), snapshot.Error,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	// Batch insert events
	if len(events) > 0 {
		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(`INSERT INTO events (type, diff, ts, value) VALUES ($1, $2, $3, $4)`,
				string(ev.Type), ev.Diff, ev.Timestamp, ev.Value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}

	if r.retention.History > 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM history WHERE id IN (
				SELECT id FROM history ORDER BY ts DESC, id DESC OFFSET $1
			)`, r.retention.History)
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}
	if r.retention.Events > 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM events WHERE id IN (
				SELECT id FROM events ORDER BY ts DESC, id DESC OFFSET $1
			)`, r.retention.Events)
		if err != nil {
			return fmt.Errorf("trim events: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListHistory retrieves up to limit of the newest snapshots.
func (r *SnapshotRepoImpl) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	query := `
		SELECT ts, username, followers, following, posts, status, error
		FROM history
		ORDER BY ts DESC, id DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, r.limit(limit, r.retention.History))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []entity.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repository.Window(reverse(newestFirst), 0, order), nil
}

// ListEvents retrieves up to limit of the newest events.
func (r *SnapshotRepoImpl) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	query := `
		SELECT type, diff, ts, value
		FROM events
		ORDER BY ts DESC, id DESC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, r.limit(limit, r.retention.Events))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []entity.Event
	for rows.Next() {
		var ev entity.Event
		var typ string
		if err := rows.Scan(&typ, &ev.Diff, &ev.Timestamp, &ev.Value); err != nil {
			return nil, err
		}
		ev.Type = entity.EventType(typ)
		ev.Timestamp = ev.Timestamp.UTC()
		newestFirst = append(newestFirst, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repository.Window(reverse(newestFirst), 0, order), nil
}

func (r *SnapshotRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// limit resolves a caller limit against the retention cap; the store never returns more than it retains.
func (r *SnapshotRepoImpl) limit(requested, retained int) int64 {
	const unbounded = 1 << 31
	switch {
	case requested > 0 && (retained <= 0 || requested < retained):
		return int64(requested)
	case retained > 0:
		return int64(retained)
	default:
		return unbounded
	}
}

func scanSnapshot(row pgx.Row) (*entity.Snapshot, error) {
	var s entity.Snapshot
	var status string
	if err := row.Scan(&s.Timestamp, &s.Username, &s.Followers, &s.Following, &s.Posts, &status, &s.Error); err != nil {
		return nil, err
	}
	s.Status = entity.SnapshotStatus(status)
	s.Timestamp = s.Timestamp.UTC()
	return &s, nil
}

func reverse[T any](items []T) []T {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}
