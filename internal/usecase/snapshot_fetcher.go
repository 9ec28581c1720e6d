package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/extract"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/pkg/metrics"
)

// SnapshotSource produces one snapshot per call and never fails.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, identity string) entity.Snapshot
}

// SnapshotFetcher fetches the profile page, parses it with the strategy chain and falls
// back to the last known counts when anything goes wrong.
type SnapshotFetcher struct {
	pages   repository.PageFetcher
	store   repository.SnapshotRepository
	chain   extract.Chain
	seed    extract.Baseline
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSnapshotFetcher creates a SnapshotFetcher. seed supplies the counts used when the
// store holds no history yet.
func NewSnapshotFetcher(
	pages repository.PageFetcher,
	store repository.SnapshotRepository,
	chain extract.Chain,
	seed extract.Baseline,
	logger *zap.Logger,
	m *metrics.Metrics,
) *SnapshotFetcher {
	if len(chain) == 0 {
		chain = extract.DefaultChain()
	}
	return &SnapshotFetcher{
		pages:   pages,
		store:   store,
		chain:   chain,
		seed:    seed,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// FetchSnapshot returns a live snapshot when the page could be fetched and parsed, and a
// cached snapshot carrying the failure text otherwise.
func (f *SnapshotFetcher) FetchSnapshot(ctx context.Context, identity string) entity.Snapshot {
	start := f.now()
	defer func() {
		f.metrics.ObserveFetch(time.Since(start).Seconds())
	}()

	last, err := f.store.Latest(ctx)
	if err != nil {
		f.logger.Warn("reading last snapshot failed", zap.Error(err))
		last = nil
	}
	base := f.baseline(last)

	content, err := f.pages.Fetch(ctx, identity)
	if err != nil {
		return f.fallback(identity, base, err)
	}

	res, err := f.chain.Parse(content, base)
	if err != nil {
		return f.fallback(identity, base, err)
	}

	f.metrics.IncFetch(string(entity.StatusLive), res.Strategy)
	f.logger.Debug("profile counts extracted",
		zap.String("username", identity),
		zap.String("strategy", res.Strategy),
		zap.Int64("followers", res.Followers),
		zap.Int64("following", res.Following),
		zap.Int64("posts", res.Posts),
	)
	return entity.Snapshot{
		Timestamp: f.now().UTC().Truncate(time.Microsecond),
		Username:  identity,
		Followers: res.Followers,
		Following: res.Following,
		Posts:     res.Posts,
		Status:    entity.StatusLive,
	}
}

func (f *SnapshotFetcher) baseline(last *entity.Snapshot) extract.Baseline {
	if last == nil {
		return f.seed
	}
	return extract.Baseline{
		Followers: last.Followers,
		Following: last.Following,
		Posts:     last.Posts,
	}
}

func (f *SnapshotFetcher) fallback(identity string, base extract.Baseline, cause error) entity.Snapshot {
	reason := failureReason(cause)
	f.metrics.IncFetch(string(entity.StatusCached), reason)
	f.logger.Warn("live fetch failed, using last known counts",
		zap.String("username", identity),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	return entity.Snapshot{
		Timestamp: f.now().UTC().Truncate(time.Microsecond),
		Username:  identity,
		Followers: base.Followers,
		Following: base.Following,
		Posts:     base.Posts,
		Status:    entity.StatusCached,
		Error:     cause.Error(),
	}
}

// failureReason maps a fetch or parse error to a low-cardinality metric label.
func failureReason(err error) string {
	var fetchErr *repository.FetchError
	switch {
	case errors.Is(err, repository.ErrThrottled):
		return "throttled"
	case errors.Is(err, repository.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, extract.ErrLoginWall):
		return "login_wall"
	case errors.Is(err, repository.ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &fetchErr):
		if fetchErr.RateLimited() {
			return "rate_limited"
		}
		return "http_status"
	case errors.Is(err, extract.ErrStatsNotFound), errors.Is(err, extract.ErrInvalidCount):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "network"
}
