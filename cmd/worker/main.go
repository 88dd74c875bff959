package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/app"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/config"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/metrics"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/rabbitmq"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/tracing"
	"github.com/SatNaingTun/SntImageBGChanger/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")
	// The worker only ever consumes from the queue.
	cfg.JobDispatch = app.DispatchQueue

	log, err := logger.NewWithFile(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile, MaxSizeMB: 50, MaxBackups: 5})
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting matting worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "matting-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	a, err := app.New(ctx, cfg, log)
	fatalOnErr(err, "wire application")
	defer a.Close()

	scheduler, err := a.Scheduler()
	fatalOnErr(err, "schedule housekeeping")
	scheduler.Start()
	defer scheduler.Stop()

	dlqPub := rabbitmq.NewDLQPublisher(a.Publisher(), cfg.RabbitMQDLQ)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log, a.Health...)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(a.AMQP, rabbitmq.ConsumerConfig{
		Topology:    a.Topology,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.RabbitMQWorkers,
	}, a.Videos.ExecuteMessage, dlqPub, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("matting worker started, consuming jobs")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("matting worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
