package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SatNaingTun/SntImageBGChanger/internal/app"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/config"
	"github.com/SatNaingTun/SntImageBGChanger/internal/infra/tracing"
	"github.com/SatNaingTun/SntImageBGChanger/internal/transport/httpapi"
	"github.com/SatNaingTun/SntImageBGChanger/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.NewWithFile(cfg.LogLevel, logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  50,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Compress:   true,
	})
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting matting server", zap.String("dispatch", cfg.JobDispatch))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "matting-server")
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

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Images:         a.Images,
		Frames:         a.Frames,
		Videos:         a.Videos,
		Backgrounds:    a.Backgrounds,
		Recordings:     a.Recordings,
		Logger:         log,
		StaticRoot:     cfg.DataDir,
		DefaultColor:   cfg.DefaultColor,
		DefaultBlur:    cfg.DefaultBlurStrength,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Health:         a.Health,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("matting server stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
