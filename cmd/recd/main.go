// Package main runs the XCam recording daemon: poll the listing API, record
// online broadcasters, upload clips, and maintain the per-user rec.json
// history.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xcam/rec-engine/config"
	"github.com/xcam/rec-engine/internal/capture"
	"github.com/xcam/rec-engine/internal/engine"
	"github.com/xcam/rec-engine/internal/ledger"
	"github.com/xcam/rec-engine/internal/poller"
	"github.com/xcam/rec-engine/internal/resolver"
	"github.com/xcam/rec-engine/internal/status"
	"github.com/xcam/rec-engine/internal/uploader"
	"github.com/xcam/rec-engine/internal/xcam"
	"github.com/xcam/rec-engine/pkg/metrics"
	"github.com/xcam/rec-engine/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// Flags override env config; this is the original CLI surface.
	pages := flag.Int("pages", cfg.Poll.Pages, "maximum listing pages to fetch per cycle")
	limit := flag.Int("limit", cfg.Poll.Limit, "broadcasters per page")
	workers := flag.Int("workers", cfg.Poll.Workers, "parallel recording tasks")
	minDuration := flag.Int("min-duration", cfg.Recording.MinDurationSec, "minimum recording length in seconds to keep")
	maxDuration := flag.Int("max-duration", cfg.Recording.MaxDurationSec, "maximum recording length in seconds")
	country := flag.String("country", cfg.Poll.Country, "two-letter country filter (empty = all)")
	interval := flag.Int("interval", cfg.Poll.IntervalSec, "seconds between poll cycles")
	watermark := flag.String("watermark", cfg.Watermark.ImagePath, "watermark image path (empty = disabled)")
	watermarkWidth := flag.Int("watermark-width", cfg.Watermark.MaxWidth, "watermark max width in pixels")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutdown signal received")
		cancel()
	}()

	m := metrics.New()

	apiClient := xcam.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), logger)
	streamResolver := resolver.New(apiClient, logger)
	media := capture.NewFFmpeg(cfg.Recording.FFmpegPath, cfg.Recording.FFprobePath, logger)
	recLedger := ledger.New(cfg.Ledger.DBPath, cfg.Ledger.TemplatePath, logger)

	var store uploader.BlobStore
	switch cfg.Upload.Backend {
	case "s3":
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:           cfg.AWS.Region,
			AccessKeyID:      cfg.AWS.AccessKeyID,
			SecretAccessKey:  cfg.AWS.SecretAccessKey,
			RecordingsBucket: cfg.AWS.RecordingsBucket,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		store = uploader.NewS3Store(s3Client, logger)
	default:
		if cfg.Upload.HydraxURL == "" {
			logger.Fatal("HYDRAX_UPLOAD_URL is required for the hydrax backend")
		}
		store = uploader.NewHydrax(cfg.Upload.HydraxURL, cfg.Upload.Timeout(), logger)
	}

	coord := engine.New(engine.Options{
		Workers:     *workers,
		MinDuration: time.Duration(*minDuration) * time.Second,
		MaxDuration: time.Duration(*maxDuration) * time.Second,
		TempDir:     cfg.Recording.TempDir,
		KeepDir:     cfg.Recording.KeepDir,
		Watermark: engine.WatermarkOptions{
			ImagePath: *watermark,
			MaxWidth:  *watermarkWidth,
			Margin:    cfg.Watermark.Margin,
		},
	}, streamResolver, media, store, recLedger, m, logger)

	if cfg.Status.Enabled {
		statusServer := status.New(cfg.Status.Port, coord, m, logger)
		go func() {
			if err := statusServer.Run(); err != nil {
				logger.Error("status server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = statusServer.Shutdown(shutdownCtx)
		}()
	}

	loop := poller.New(poller.Options{
		Pages:    *pages,
		Limit:    *limit,
		Country:  *country,
		Interval: time.Duration(*interval) * time.Second,
	}, apiClient, coord, m, logger)

	logger.Info("recording engine started",
		zap.Int("workers", *workers),
		zap.Int("min_duration_sec", *minDuration),
		zap.Int("max_duration_sec", *maxDuration))

	loop.Run(ctx)

	// Give in-flight tasks a chance to finish their current stage.
	coord.Wait()
	logger.Info("recording engine stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
