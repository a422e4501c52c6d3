package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// Run parameters (jurisdiction, date range, variables) are CLI flags, not
// environment; see cmd/zonal.
type Config struct {
	StorePath   string
	RegionsPath string

	OutputDir    string
	OutputPrefix string

	HTTPAddr        string // empty disables the metrics endpoint
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Workers       int // 0 = one per CPU
	StoreRetryMax int

	// Kafka summary sink configuration.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	workers, err := parseIntEnv("WORKERS", 0)
	if err != nil {
		return nil, err
	}
	if workers < 0 {
		return nil, errors.New("WORKERS must not be negative")
	}

	retryMax, err := parseIntEnv("STORE_RETRY_MAX", 5)
	if err != nil {
		return nil, err
	}
	if retryMax < 1 {
		return nil, errors.New("STORE_RETRY_MAX must be at least 1")
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		StorePath:   os.Getenv("STORE_PATH"),
		RegionsPath: os.Getenv("REGIONS_PATH"),

		OutputDir:    envOrDefault("OUTPUT_DIR", "."),
		OutputPrefix: envOrDefault("OUTPUT_PREFIX", "gridmet"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Workers:       workers,
		StoreRetryMax: retryMax,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: envOrDefault("KAFKA_SUMMARY_TOPIC", "region-day-summaries"),
	}

	if cfg.StorePath == "" {
		return nil, errors.New("STORE_PATH is required")
	}
	if cfg.RegionsPath == "" {
		return nil, errors.New("REGIONS_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SUMMARY_TOPIC is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
