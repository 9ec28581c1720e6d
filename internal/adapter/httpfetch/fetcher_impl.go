// Package httpfetch retrieves profile pages with a plain HTTP client.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/follower-tracker/internal/proxy"
	"github.com/user/follower-tracker/internal/repository"
)

const maxBodyBytes = 8 << 20

// Options configures the HTTP fetcher.
type Options struct {
	// URLTemplate receives the path-escaped identity through a single %s verb.
	URLTemplate string
	Timeout     time.Duration
	// MinInterval is the minimum spacing between outbound requests. Zero disables pacing.
	MinInterval time.Duration
	// BreakerFailureThreshold consecutive failures open the circuit for BreakerDelay.
	BreakerFailureThreshold uint
	BreakerDelay            time.Duration
}

// Fetcher implements repository.PageFetcher over net/http. Every call performs at most one
// outbound request: the pacing limiter and the circuit breaker can only skip it.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	identities  *proxy.Manager
	limiter     *rate.Limiter
	breaker     circuitbreaker.CircuitBreaker[string]
	logger      *zap.Logger
}

// NewFetcher creates a new fetcher.
func NewFetcher(opts Options, identities *proxy.Manager, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.BreakerFailureThreshold == 0 {
		opts.BreakerFailureThreshold = 3
	}
	if opts.BreakerDelay <= 0 {
		opts.BreakerDelay = 2 * time.Minute
	}
	if identities == nil {
		identities = proxy.NewManager(nil, nil)
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{Proxy: identities.ProxyFunc()},
		},
		urlTemplate: opts.URLTemplate,
		identities:  identities,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger,
	}
	f.breaker = circuitbreaker.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			// A missing profile is an answer, not an outage.
			var fe *repository.FetchError
			return err != nil && !(errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound)
		}).
		WithFailureThreshold(opts.BreakerFailureThreshold).
		WithDelay(opts.BreakerDelay).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn("fetch circuit breaker state change",
				zap.String("from", e.OldState.String()),
				zap.String("to", e.NewState.String()))
		}).
		Build()
	return f
}

// Fetch retrieves the profile page for identity.
func (f *Fetcher) Fetch(ctx context.Context, identity string) (string, error) {
	if !f.limiter.Allow() {
		return "", repository.ErrThrottled
	}
	body, err := failsafe.With(f.breaker).WithContext(ctx).Get(func() (string, error) {
		return f.do(ctx, identity)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "", repository.ErrCircuitOpen
	}
	return body, err
}

func (f *Fetcher) do(ctx context.Context, identity string) (string, error) {
	target := fmt.Sprintf(f.urlTemplate, url.PathEscape(identity))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.identities.GetUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &repository.FetchError{Err: err}
	}
	defer resp.Body.Close()

	f.logger.Debug("profile page fetched",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return "", &repository.FetchError{StatusCode: resp.StatusCode}
	}
	if resp.Request != nil && strings.Contains(resp.Request.URL.Path, "/accounts/login") {
		return "", fmt.Errorf("redirected to login page: %w", repository.ErrRateLimited)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &repository.FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(raw), nil
}
