package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/delivery/http/handler"
	"github.com/user/follower-tracker/internal/delivery/http/router"
	"github.com/user/follower-tracker/internal/extract"
	"github.com/user/follower-tracker/internal/scheduler"
	"github.com/user/follower-tracker/internal/usecase"
	"github.com/user/follower-tracker/pkg/config"
	"github.com/user/follower-tracker/pkg/logger"
	"github.com/user/follower-tracker/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// --- Metrics ---
	m := metrics.New(prometheus.DefaultRegisterer)

	monitored, err := usecase.ParseMetrics(cfg.MonitoredMetrics)
	if err != nil {
		log.Fatal("invalid MONITORED_METRICS", zap.Error(err))
	}

	ctx := context.Background()

	// --- Store ---
	bundle := newStore(ctx, cfg, log)
	defer bundle.close()
	store := usecase.NewResilientStore(bundle.repo, bundle.backend, log, m)

	// --- Fetcher ---
	pages, closePages := newPageFetcher(cfg, log)
	defer closePages()

	// --- Use Cases ---
	seed := extract.Baseline{
		Followers: cfg.SeedFollowers,
		Following: cfg.SeedFollowing,
		Posts:     cfg.SeedPosts,
	}
	fetcher := usecase.NewSnapshotFetcher(pages, store, extract.DefaultChain(), seed, log, m)
	orchestrator := usecase.NewOrchestrator(fetcher, store, usecase.NewDiffEngine(monitored...), usecase.OrchestratorOptions{
		Identity:     cfg.ProfileUsername,
		FetchTimeout: cfg.FetchTimeout,
		Lock:         bundle.lock,
		Seed:         seed,
	}, log, m)

	// --- Scheduler ---
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(cfg.RefreshSchedule, func(ctx context.Context) {
			orchestrator.Refresh(ctx)
		}, log)
		if err := sched.Start(); err != nil {
			log.Fatal("could not start scheduler", zap.Error(err))
		}
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(orchestrator, store, cfg.StalenessThreshold, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, m, prometheus.DefaultGatherer, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()
	log.Info("server started",
		zap.String("port", cfg.ServerPort),
		zap.String("username", cfg.ProfileUsername),
		zap.String("store", bundle.backend),
	)

	if cfg.RefreshOnStart {
		go orchestrator.Refresh(ctx)
	}

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
}
