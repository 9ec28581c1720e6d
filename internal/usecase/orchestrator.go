package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/extract"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/pkg/metrics"
)

// DefaultStaleness is how old the latest snapshot may get before a read triggers a refresh.
const DefaultStaleness = 5 * time.Minute

// RefreshLock guards refreshes across processes sharing one store.
type RefreshLock interface {
	// TryAcquire takes the lock without waiting. acquired is false when another holder has it.
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// recorder is implemented by stores that can tell whether an append was kept.
type recorder interface {
	Record(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) bool
}

// refreshResult is what concurrent Refresh callers share.
type refreshResult struct {
	snapshot  entity.Snapshot
	persisted bool // snapshot is in the store, either appended now or read back from it
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Identity     string
	FetchTimeout time.Duration    // Bounds a shared refresh independently of its callers
	Lock         RefreshLock      // Optional
	Seed         extract.Baseline // Counts served before anything is stored
	Now          func() time.Time
}

// Orchestrator runs the refresh pipeline: fetch, compare with the latest stored snapshot,
// conditionally persist. Concurrent refreshes share one execution.
type Orchestrator struct {
	source  SnapshotSource
	store   repository.SnapshotRepository
	diff    *DiffEngine
	opts    OrchestratorOptions
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator creates an Orchestrator. store should already absorb its own failures,
// see ResilientStore.
func NewOrchestrator(
	source SnapshotSource,
	store repository.SnapshotRepository,
	diff *DiffEngine,
	opts OrchestratorOptions,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if diff == nil {
		diff = NewDiffEngine()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		source:  source,
		store:   store,
		diff:    diff,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Refresh fetches a snapshot and persists it if it is the first one or differs from the
// latest stored snapshot. A caller arriving while a refresh is in flight waits for it and
// receives the same snapshot. Cancelling ctx only stops the wait.
func (o *Orchestrator) Refresh(ctx context.Context) entity.Snapshot {
	return o.refreshShared(ctx).snapshot
}

func (o *Orchestrator) refreshShared(ctx context.Context) refreshResult {
	ch := o.group.DoChan(o.opts.Identity, func() (any, error) {
		return o.refresh(), nil
	})

	select {
	case res := <-ch:
		return res.Val.(refreshResult)
	case <-ctx.Done():
		o.logger.Debug("refresh caller gone, fetch continues in background", zap.Error(ctx.Err()))
		return o.latestOrSeed(context.Background())
	}
}

// EnsureFresh returns the current history (oldest first) and events (newest first),
// refreshing first when the latest snapshot is missing or older than maxAge.
// The refreshed snapshot is included in the history even when it was not persisted.
func (o *Orchestrator) EnsureFresh(ctx context.Context, maxAge time.Duration) entity.Stats {
	if maxAge <= 0 {
		maxAge = DefaultStaleness
	}

	latest, _ := o.store.Latest(ctx)
	var refreshed *refreshResult
	if latest == nil || latest.Age(o.opts.Now()) > maxAge {
		o.logger.Info("data stale, performing on-demand fetch")
		res := o.refreshShared(ctx)
		refreshed = &res
	}

	history, _ := o.store.ListHistory(ctx, 0, repository.OrderAsc)
	events, _ := o.store.ListEvents(ctx, 0, repository.OrderDesc)

	if refreshed != nil && !visible(history, *refreshed) {
		history = append(history, refreshed.snapshot)
	}
	return entity.Stats{History: history, Events: events}
}

// visible reports whether history already ends with the refreshed snapshot.
func visible(history []entity.Snapshot, res refreshResult) bool {
	if !res.persisted || len(history) == 0 {
		return false
	}
	last := history[len(history)-1].Timestamp.Truncate(time.Microsecond)
	return last.Equal(res.snapshot.Timestamp.Truncate(time.Microsecond))
}

// refresh is the body shared by concurrent Refresh callers.
func (o *Orchestrator) refresh() refreshResult {
	ctx := context.Background()
	if o.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.FetchTimeout)
		defer cancel()
	}

	if o.opts.Lock != nil {
		release, acquired, err := o.opts.Lock.TryAcquire(ctx)
		switch {
		case err != nil:
			o.logger.Warn("refresh lock unavailable, refreshing without it", zap.Error(err))
		case !acquired:
			if latest, _ := o.store.Latest(ctx); latest != nil {
				o.logger.Info("refresh already running in another process, serving latest")
				return refreshResult{snapshot: *latest, persisted: true}
			}
		default:
			defer release()
		}
	}

	snapshot := o.source.FetchSnapshot(ctx, o.opts.Identity)
	last, _ := o.store.Latest(ctx)

	persist, events := o.diff.Evaluate(snapshot, last)
	if !persist {
		o.logger.Info("no change",
			zap.String("status", string(snapshot.Status)),
			zap.Int64("followers", snapshot.Followers),
			zap.Int64("following", snapshot.Following),
		)
		return refreshResult{snapshot: snapshot}
	}

	if !o.append(ctx, snapshot, events) {
		o.logger.Warn("change detected but snapshot not persisted",
			zap.Int64("followers", snapshot.Followers),
			zap.Int64("following", snapshot.Following),
			zap.Int("events", len(events)),
		)
		return refreshResult{snapshot: snapshot}
	}
	o.metrics.RecordPersisted(snapshot.Followers, snapshot.Following, snapshot.Posts)
	for _, e := range events {
		o.metrics.IncChangeEvent(string(e.Type))
	}

	fields := []zap.Field{
		zap.String("status", string(snapshot.Status)),
		zap.Int64("followers", snapshot.Followers),
		zap.Int64("following", snapshot.Following),
		zap.Int64("posts", snapshot.Posts),
		zap.Int("events", len(events)),
	}
	if last == nil {
		o.logger.Info("first snapshot recorded", fields...)
	} else {
		o.logger.Info("change detected", fields...)
	}
	return refreshResult{snapshot: snapshot, persisted: true}
}

func (o *Orchestrator) append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) bool {
	if r, ok := o.store.(recorder); ok {
		return r.Record(ctx, snapshot, events)
	}
	return o.store.Append(ctx, snapshot, events) == nil
}

// latestOrSeed serves an abandoned caller without waiting for the network.
func (o *Orchestrator) latestOrSeed(ctx context.Context) refreshResult {
	if latest, _ := o.store.Latest(ctx); latest != nil {
		return refreshResult{snapshot: *latest, persisted: true}
	}
	return refreshResult{snapshot: entity.Snapshot{
		Timestamp: o.opts.Now().UTC().Truncate(time.Microsecond),
		Username:  o.opts.Identity,
		Followers: o.opts.Seed.Followers,
		Following: o.opts.Seed.Following,
		Posts:     o.opts.Seed.Posts,
		Status:    entity.StatusCached,
		Error:     context.Canceled.Error(),
	}}
}
