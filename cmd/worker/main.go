package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/dataset-recommender/internal/bootstrap"
	"github.com/kirillkom/dataset-recommender/internal/config"
	"github.com/kirillkom/dataset-recommender/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	timeout := time.Duration(cfg.WorkerProcessTimeoutSec) * time.Second
	logger.Info("worker subscribed", "subject", cfg.NATSSubject, "process_timeout", timeout.String())
	err = app.Queue.SubscribeDatasetUploaded(ctx, func(handlerCtx context.Context, datasetID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, timeout)
		defer cancel()
		if err := app.ProcessUC.ProcessByID(processCtx, datasetID); err != nil {
			logger.Error("dataset processing failed", "dataset_id", datasetID, "error", err)
			return err
		}
		logger.Info("dataset processed", "dataset_id", datasetID)
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
	}
}
