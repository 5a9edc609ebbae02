package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkoval/receiptwise/internal/bootstrap"
	"github.com/dkoval/receiptwise/internal/config"
	"github.com/dkoval/receiptwise/internal/observability/logging"
	"github.com/dkoval/receiptwise/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app.ProcessUC.OnMismatch = func() {
		workerMetrics.RecordReconciliationMismatch("worker")
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReceiptUploaded(ctx, func(handlerCtx context.Context, receiptID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartReceipt()
		start := time.Now()
		if receipt, getErr := app.Repo.GetByID(processCtx, receiptID); getErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(receipt.CreatedAt))
		}

		processErr := app.ProcessUC.ProcessByID(processCtx, receiptID)
		workerMetrics.FinishReceipt("worker", time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
