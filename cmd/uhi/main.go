// Command uhi runs the urban heat island analysis service: it composites
// satellite scenes per configured period, detects persistent hotspots for
// one region, publishes the report to Kafka, and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/heat-island-analysis/internal/adapter/features"
	httpadapter "github.com/couchcryptid/heat-island-analysis/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/heat-island-analysis/internal/adapter/kafka"
	"github.com/couchcryptid/heat-island-analysis/internal/adapter/scenes"
	"github.com/couchcryptid/heat-island-analysis/internal/config"
	"github.com/couchcryptid/heat-island-analysis/internal/observability"
	"github.com/couchcryptid/heat-island-analysis/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	regions, err := features.NewStore(cfg.RegionsFile)
	if err != nil {
		logger.Error("failed to load regions", "error", err)
		os.Exit(1)
	}
	logger.Info("regions loaded", "file", cfg.RegionsFile, "names", regions.Names())

	catalog := scenes.NewCatalog(cfg.ScenesDir, cfg.ScenesIndex, logger)

	var publisher pipeline.ReportPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
	} else {
		logger.Info("kafka publishing disabled; reports served over HTTP only")
	}

	params := pipeline.Params{
		UHIPercentile:    cfg.UHIPercentile,
		MinPatchPixels:   cfg.MinPatchPixels,
		MaxPatchSizeHint: cfg.MaxPatchSizeHint,
		MaxCloudCover:    cfg.MaxCloudCover,
		ZonalScale:       cfg.ZonalScaleM,
		ZonalMaxSamples:  cfg.ZonalMaxSamples,
		ZonalBestEffort:  cfg.ZonalBestEffort,
	}
	analyzer := pipeline.NewAnalyzer(catalog, logger, metrics, params)
	comparator := pipeline.NewComparator(analyzer, regions, logger, metrics, params)
	runner := pipeline.NewRunner(comparator, publisher, logger, metrics, pipeline.RunnerConfig{
		RegionName: cfg.RegionName,
		Periods:    cfg.Periods,
		Interval:   cfg.AnalysisInterval,
	}, nil)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the analysis runner.
	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Run(ctx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-runnerDone:
		// One-shot mode (zero interval) ends here; with an interval the
		// runner only returns on cancellation.
		if err != nil {
			logger.Error("analysis runner error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}
