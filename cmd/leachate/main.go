package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/leachate-prediction-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/leachate-prediction-service/internal/adapter/kafka"
	"github.com/couchcryptid/leachate-prediction-service/internal/config"
	"github.com/couchcryptid/leachate-prediction-service/internal/model"
	"github.com/couchcryptid/leachate-prediction-service/internal/observability"
	"github.com/couchcryptid/leachate-prediction-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	volume, err := model.Load(cfg.VolumeModelPath)
	if err != nil {
		logger.Error("failed to load volume model", "error", err)
		os.Exit(1)
	}
	chemistry, err := model.Load(cfg.ChemistryModelPath)
	if err != nil {
		logger.Error("failed to load chemistry model", "error", err)
		os.Exit(1)
	}

	opts := pipeline.Options{Consistency: pipeline.ConsistencyPolicy(cfg.ArtifactConsistency)}

	// Prediction events are feature-flagged via PUBLISH_ENABLED / KAFKA_BROKERS.
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("prediction publishing enabled", "topic", cfg.KafkaPredictionTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("prediction publishing disabled")
	}

	p, err := pipeline.New(volume, chemistry, logger, metrics, opts)
	if err != nil {
		logger.Error("failed to prepare predictor", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

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
}
