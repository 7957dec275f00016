package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Artifact consistency policies.
const (
	ConsistencyStrict = "strict"
	ConsistencyWarn   = "warn"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional rotating log file; stdout when empty.
	LogFile      string
	LogMaxSizeMB int

	VolumeModelPath     string
	ChemistryModelPath  string
	ArtifactConsistency string

	// Prediction event publishing.
	PublishEnabled       bool
	KafkaBrokers         []string
	KafkaPredictionTopic string
	KafkaPublishTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	publishTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("KAFKA_PUBLISH_TIMEOUT", "5s"))
	if err != nil || publishTimeout <= 0 {
		return nil, errors.New("invalid KAFKA_PUBLISH_TIMEOUT")
	}

	logMaxSize, err := parsePositiveInt("LOG_MAX_SIZE_MB", 50)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	publishEnabled := len(brokers) > 0
	if v := os.Getenv("PUBLISH_ENABLED"); v != "" {
		publishEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		LogFile:         os.Getenv("LOG_FILE"),
		LogMaxSizeMB:    logMaxSize,

		VolumeModelPath:     sharedcfg.EnvOrDefault("VOLUME_MODEL_PATH", "models/leachate_volume_model.json"),
		ChemistryModelPath:  sharedcfg.EnvOrDefault("CHEMISTRY_MODEL_PATH", "models/leachate_chemistry_model.json"),
		ArtifactConsistency: sharedcfg.EnvOrDefault("ARTIFACT_CONSISTENCY", ConsistencyStrict),

		PublishEnabled:       publishEnabled,
		KafkaBrokers:         brokers,
		KafkaPredictionTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTION_TOPIC", "leachate-predictions"),
		KafkaPublishTimeout:  publishTimeout,
	}

	if cfg.VolumeModelPath == "" {
		return nil, errors.New("VOLUME_MODEL_PATH is required")
	}
	if cfg.ChemistryModelPath == "" {
		return nil, errors.New("CHEMISTRY_MODEL_PATH is required")
	}
	if cfg.ArtifactConsistency != ConsistencyStrict && cfg.ArtifactConsistency != ConsistencyWarn {
		return nil, fmt.Errorf("invalid ARTIFACT_CONSISTENCY %q: want %q or %q",
			cfg.ArtifactConsistency, ConsistencyStrict, ConsistencyWarn)
	}
	if cfg.PublishEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("PUBLISH_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.PublishEnabled && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("KAFKA_PREDICTION_TOPIC is required when publishing")
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}
