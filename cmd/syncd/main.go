package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/floatdeck/datasync/internal/api"
	"github.com/floatdeck/datasync/internal/classify"
	"github.com/floatdeck/datasync/internal/config"
	"github.com/floatdeck/datasync/internal/database"
	"github.com/floatdeck/datasync/internal/journal"
	"github.com/floatdeck/datasync/internal/link"
	"github.com/floatdeck/datasync/internal/model"
	"github.com/floatdeck/datasync/internal/queue"
	"github.com/floatdeck/datasync/internal/reconcile"
	"github.com/floatdeck/datasync/internal/snapshot"
	"github.com/floatdeck/datasync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Pull in .env before config expansion (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"stream_url", cfg.Stream.URL,
		"api_url", cfg.API.BaseURL,
		"journal", cfg.Journal.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Stores and reconciler
	stores := reconcile.NewStores()
	rec := reconcile.New(stores, logger)

	// Optional signal journal
	var journalWriter *journal.Writer
	if cfg.Journal.Enabled {
		pool, err := database.Connect(ctx, cfg.Journal.Database)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journalIn := queue.New[model.BuySignal](cfg.Journal.BatchSize)
		journalWriter = journal.NewWriter(journal.Config{
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, journalIn, pool, logger)

		rec.OnSignalAccepted(func(sig model.BuySignal) {
			journalIn.Send(sig)
		})

		if err := journalWriter.Start(ctx); err != nil {
			logger.Error("failed to start journal", "error", err)
			os.Exit(1)
		}
	}

	// Connection supervisor
	sup := link.NewSupervisor(link.Config{
		URL:               cfg.Stream.URL,
		Token:             cfg.Stream.Token,
		TokenParam:        cfg.Stream.TokenParam,
		AuthRequired:      cfg.Stream.AuthRequired,
		ReconnectBaseWait: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Stream.ReconnectMaxDelay,
		BootstrapTimeout:  cfg.Stream.BootstrapTimeout,
		QueueSize:         cfg.Stream.QueueSize,
	}, logger)

	sup.OnStateChange(func(st link.Status) {
		logger.Debug("link state", "state", st.State, "attempt", st.Attempt)
	})

	// Classifier over the supervisor's frame queue
	cl := classify.New(sup.Frames(), logger)
	rec.Bind(cl)

	// Snapshot loader
	apiClient := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
	)
	loader := snapshot.New(apiClient, stores, logger)

	// Start the link first so frames accumulate in the queue while the
	// snapshot installs; a credential-less start is fatal configuration.
	if err := sup.Start(); err != nil {
		if errors.Is(err, link.ErrMissingToken) {
			logger.Error("stream credential not configured", "error", err)
			os.Exit(1)
		}
		logger.Error("failed to start link", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := <-sup.Bootstrap(); err != nil {
			logger.Warn("stream bootstrap failed", "error", err)
		} else {
			logger.Info("stream bootstrap complete")
		}
	}()

	// Install the snapshot before dispatching any stream frame. Queued
	// frames are applied afterwards in arrival order, so a slow snapshot
	// can never overwrite newer stream state.
	if err := loader.Load(ctx); err != nil {
		logger.Warn("snapshot load failed, continuing with stream only", "error", err)
	}

	if err := cl.Start(ctx); err != nil {
		logger.Error("failed to start classifier", "error", err)
		os.Exit(1)
	}

	// Status server: the presentation layer's pull accessor
	statusServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Serve.Port),
		Handler: createStatusHandler(sup, cl, stores, loader, journalWriter),
	}

	go func() {
		logger.Info("starting status server", "port", cfg.Serve.Port)
		if err := statusServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("status server error", "error", err)
		}
	}()

	<-ctx.Done()

	// Shutdown: supervisor first so no new frames arrive, then the
	// classifier, then the journal flushes its tail.
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	statusServer.Shutdown(shutdownCtx)
	sup.Stop()
	cl.Stop(shutdownCtx)
	if journalWriter != nil {
		journalWriter.Stop(shutdownCtx)
	}

	logger.Info("syncd stopped")
}
