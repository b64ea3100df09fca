package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"feedsync/internal/config"
	"feedsync/internal/dropbox"
	"feedsync/internal/feed"
	"feedsync/internal/observability"
	"feedsync/internal/pipeline"
	"feedsync/internal/repository"
	"feedsync/internal/runlock"
)

const moduleName = "main"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wd, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("Cannot determine working directory: %v", err)
	}

	cfg, err := config.Load(wd)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()
	log := logger.WithFields(logrus.Fields{"run_id": runID, "supplier": cfg.Supplier})

	defer func() {
		pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pctx, cfg.PushgatewayURL, cfg.Supplier); err != nil {
			log.WithError(err).Warn("pushing metrics failed")
		}
	}()

	fail := func(funcName, msg string, err error) int {
		metrics.RunFailed.Set(1)
		observability.LogError(log, moduleName, funcName, msg, nil, err)
		return 1
	}

	log.Info("Starting feed import")

	var coord *runlock.Coordinator
	if cfg.RedisURL != "" {
		coord, err = runlock.Connect(ctx, cfg.RedisURL, cfg.Supplier)
		if err != nil {
			return fail("runlock.Connect", "connect to redis", err)
		}
		defer coord.Close()
	}
	release, err := coord.Acquire(ctx)
	if err != nil {
		return fail("runlock.Acquire", "obtain supplier lock", err)
	}
	defer release()

	var previous pipeline.Summary
	if ok, err := coord.LastRun(ctx, &previous); err != nil {
		log.WithError(err).Warn("reading last run failed")
	} else if ok {
		log.WithFields(logrus.Fields{
			"previous_run_id": previous.RunID,
			"previous_kept":   previous.Kept,
			"previous_table":  previous.Table,
			"previous_at":     previous.FinishedAt,
		}).Info("Previous import")
	}

	p := &pipeline.Pipeline{
		Config:   cfg,
		Fetcher:  feed.NewFetcher(cfg.FTP, cfg.Feed.RemotePrefix, cfg.WorkDir, log),
		Uploader: dropbox.New(cfg.DropboxToken, log),
		OpenStore: func(ctx context.Context) (repository.Store, error) {
			return repository.New(ctx, cfg.Database, cfg.Export.BatchSize)
		},
		Logger:  logger,
		Metrics: metrics,
		RunID:   runID,
	}

	summary, err := p.Run(ctx)
	if err != nil {
		return fail("pipeline.Run", "feed import aborted", err)
	}

	if err := coord.RecordRun(ctx, summary); err != nil {
		log.WithError(err).Warn("recording last run failed")
	}
	return 0
}
