package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emi-ran/video-downloader-bot/internal/adapter/ffmpeg"
	httpAdapter "github.com/emi-ran/video-downloader-bot/internal/adapter/http"
	"github.com/emi-ran/video-downloader-bot/internal/adapter/sqlite"
	"github.com/emi-ran/video-downloader-bot/internal/adapter/ytdlp"
	"github.com/emi-ran/video-downloader-bot/internal/config"
	"github.com/emi-ran/video-downloader-bot/internal/domain"
	"github.com/emi-ran/video-downloader-bot/internal/download"
	"github.com/emi-ran/video-downloader-bot/internal/metrics"
	"github.com/emi-ran/video-downloader-bot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	setupLogging(cfg.LogLevel)
	logrus.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"download_dir": cfg.DownloadDir,
		"db":           cfg.DBPath,
		"ttl":          cfg.TTL,
	}).Info("starting vidserve")

	// Statistics sink
	sink, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	defer sink.Close()

	// Registry and public file store
	registry, err := store.LoadRegistry(cfg.RegistryPath())
	if err != nil {
		logrus.Fatalf("failed to load registry: %v", err)
	}
	if registry.Len() > 0 {
		logrus.WithField("entries", registry.Len()).Info("registry loaded")
	}
	fileStore, err := store.NewFileStore(cfg.DownloadDir, registry, sink)
	if err != nil {
		logrus.Fatalf("failed to initialize file store: %v", err)
	}
	stagingDir, err := fileStore.StagingDir()
	if err != nil {
		logrus.Fatalf("failed to initialize staging dir: %v", err)
	}

	// Pipeline
	m := metrics.NewProm("vidserve")
	catalog := ytdlp.New(cfg.YTDLPBin, cfg.FetchTimeout)
	muxer := ffmpeg.New(cfg.FFmpegBin, cfg.MuxTimeout)
	orchestrator := download.New(catalog, catalog, muxer, stagingDir)
	svc := domain.NewPipelineService(orchestrator, fileStore, sink, m)

	// Retention sweeper
	sweeper := store.NewSweeper(fileStore, cfg.TTL, cfg.SweepInterval, m)

	// HTTP front-end
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := httpAdapter.NewServer(svc, catalog, cfg.TTL, addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go sweeper.Run(ctx)

	go func() {
		logrus.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			logrus.WithError(err).Error("HTTP server error")
		}
	}()

	sig := <-sigCh
	logrus.WithField("signal", sig.String()).Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
	}

	logrus.Info("shutdown complete")
}

func setupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	logrus.SetOutput(os.Stdout)
}
