package main

import (
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/adapter/chromedp_crawler"
	"github.com/user/follower-tracker/internal/adapter/httpfetch"
	"github.com/user/follower-tracker/internal/proxy"
	"github.com/user/follower-tracker/internal/repository"
	"github.com/user/follower-tracker/pkg/config"
)

// newPageFetcher selects the page fetcher. The browser fetcher falls back to plain HTTP
// when no browser can be started.
func newPageFetcher(cfg *config.Config, logger *zap.Logger) (repository.PageFetcher, func()) {
	identities := proxy.NewManager(cfg.ProxyURLs, cfg.UserAgents)

	if cfg.FetchMode == config.FetchModeBrowser {
		browser, err := chromedp_crawler.NewChromedpFetcher(cfg.ProfileURLTemplate, cfg.FetchTimeout, identities, logger)
		if err == nil {
			logger.Info("using headless browser fetcher")
			return browser, browser.Close
		}
		logger.Warn("headless browser unavailable, using HTTP fetcher", zap.Error(err))
	}

	return httpfetch.NewFetcher(httpfetch.Options{
		URLTemplate:             cfg.ProfileURLTemplate,
		Timeout:                 cfg.FetchTimeout,
		MinInterval:             cfg.FetchMinInterval,
		BreakerFailureThreshold: cfg.BreakerFailureThreshold,
		BreakerDelay:            cfg.BreakerDelay,
	}, identities, logger), func() {}
}
