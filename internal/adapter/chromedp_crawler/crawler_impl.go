package chromedp_crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/proxy"
	"github.com/user/follower-tracker/internal/repository"
)

// ChromedpFetcher renders the profile page in headless Chrome. It is used when the plain
// HTTP response lacks the data the extraction strategies look for.
type ChromedpFetcher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	urlTemplate string
	timeout     time.Duration
	identities  *proxy.Manager
	logger      *zap.Logger
}

// NewChromedpFetcher creates a new fetcher implementation using chromedp.
func NewChromedpFetcher(urlTemplate string, pageLoadTimeout time.Duration, identities *proxy.Manager, logger *zap.Logger) (*ChromedpFetcher, error) {
	if identities == nil {
		identities = proxy.NewManager(nil, nil)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(identities.GetUserAgent()),
	)
	if p := identities.GetProxy(); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	// Start and close one browser so a missing Chrome shows up here rather than on every fetch.
	probeCtx, cancelProbe := chromedp.NewContext(allocCtx)
	probeCtx, cancelProbeTimeout := context.WithTimeout(probeCtx, 30*time.Second)
	err := chromedp.Run(probeCtx)
	cancelProbeTimeout()
	cancelProbe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}

	return &ChromedpFetcher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		urlTemplate: urlTemplate,
		timeout:     pageLoadTimeout,
		identities:  identities,
		logger:      logger,
	}, nil
}

// Fetch navigates to the identity's profile page and returns the rendered document.
func (c *ChromedpFetcher) Fetch(ctx context.Context, identity string) (string, error) {
	taskCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()

	// Create a timeout for the entire crawl task
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, c.timeout)
	defer cancelTimeout()

	// Stop the browser tab if the caller goes away first.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	target := fmt.Sprintf(c.urlTemplate, url.PathEscape(identity))
	startTime := time.Now()

	var html, location string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		c.logger.Warn("failed to render profile page", zap.String("url", target), zap.Error(err))
		return "", &repository.FetchError{Err: fmt.Errorf("render %s: %w", target, err)}
	}

	c.logger.Debug("rendered profile page",
		zap.String("url", target),
		zap.Duration("duration", time.Since(startTime)))

	if strings.Contains(location, "/accounts/login") {
		return "", fmt.Errorf("redirected to login page: %w", repository.ErrRateLimited)
	}
	return html, nil
}

// Close shuts down the browser allocator.
func (c *ChromedpFetcher) Close() {
	c.cancelAlloc()
}
