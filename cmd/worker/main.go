package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/policyscope/policyscope/internal/bootstrap"
	"github.com/policyscope/policyscope/internal/config"
	"github.com/policyscope/policyscope/internal/core/domain"
)

const serviceName = "policyscope-worker"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.WorkerMetrics.Handler())
	metricsMux.Handle("/metrics/pipeline", app.Pipeline.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Log.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribePolicyUploaded(ctx, func(handlerCtx context.Context, event domain.PolicyUploaded) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
		defer cancel()

		app.WorkerMetrics.ObserveQueueLag(serviceName, time.Since(event.UploadedAt))
		app.WorkerMetrics.StartPolicy()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, event.PolicyID)
		app.WorkerMetrics.FinishPolicy(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
