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

	"github.com/joho/godotenv"

	"github.com/kirillkom/f1-penalty-rag/internal/bootstrap"
	"github.com/kirillkom/f1-penalty-rag/internal/config"
	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/observability/logging"
	"github.com/kirillkom/f1-penalty-rag/internal/observability/metrics"
)

const service = "worker"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "error", err)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service: service,
		Queue:   true,
		Metrics: workerMetrics.Registry(),
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestRequests(ctx, func(handlerCtx context.Context, url string) error {
		started := time.Now()
		workerMetrics.StartDocument()

		doc, err := app.FetchUC.FetchAndIngest(handlerCtx, url)
		var outcome domain.IngestOutcome
		if doc != nil {
			outcome = doc.Outcome
		}
		workerMetrics.FinishDocument(service, outcome, time.Since(started), err)
		if err != nil {
			return err
		}
		slog.Info("document_ingested", "url", url, "file", doc.Filename, "outcome", doc.Outcome)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
