package repository

import (
	"context"

	"github.com/user/follower-tracker/internal/entity"
)

// Order controls the sort direction of list queries by timestamp.
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// Retention bounds how many history and event entries a store keeps.
type Retention struct {
	History int
	Events  int
}

// DefaultRetention matches the caps of the persisted document.
var DefaultRetention = Retention{History: 500, Events: 100}

// SnapshotRepository defines the append-only, bounded persistence of snapshots and change events.
// Implementations enforce Retention themselves, evicting the oldest entries first.
type SnapshotRepository interface {
	// Latest returns the most recent snapshot, or nil if none has been stored.
	Latest(ctx context.Context) (*entity.Snapshot, error)
	// Append stores a snapshot together with the events it caused. Readers see both or neither.
	Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error
	// ListHistory returns up to limit snapshots (all retained when limit <= 0).
	ListHistory(ctx context.Context, limit int, order Order) ([]entity.Snapshot, error)
	// ListEvents returns up to limit events (all retained when limit <= 0).
	ListEvents(ctx context.Context, limit int, order Order) ([]entity.Event, error)
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
