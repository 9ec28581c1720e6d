package memory

import (
	"context"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

// NullStore satisfies the snapshot store contract without persisting anything.
// It is selected at startup when no backend is configured.
type NullStore struct{}

func (NullStore) Latest(ctx context.Context) (*entity.Snapshot, error) {
	return nil, nil
}

// Append drops the snapshot and reports that nothing was stored.
func (NullStore) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	return repository.ErrStoreUnavailable
}

func (NullStore) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	return []entity.Snapshot{}, nil
}

func (NullStore) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	return []entity.Event{}, nil
}

// Ping always fails so that health checks report persistence as unavailable.
func (NullStore) Ping(ctx context.Context) error {
	return repository.ErrStoreUnavailable
}
