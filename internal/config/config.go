// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Scene catalog.
	ScenesDir   string
	ScenesIndex string

	// Region store.
	RegionsFile string
	RegionName  string

	// Analysis parameters.
	Periods          []domain.Period
	UHIPercentile    int
	MinPatchPixels   int
	MaxPatchSizeHint int
	MaxCloudCover    float64

	// Zonal sampling.
	ZonalScaleM     float64
	ZonalMaxSamples int
	ZonalBestEffort bool

	// AnalysisInterval re-runs the analysis on a timer; zero means run once
	// and exit.
	AnalysisInterval time.Duration

	// Kafka sink. With KafkaEnabled false the service keeps the report
	// available over HTTP only.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	periods, err := ParsePeriods(EnvOrDefault("ANALYSIS_PERIODS", ""))
	if err != nil {
		return nil, err
	}

	percentile, err := envInt("UHI_PERCENTILE", 90)
	if err != nil {
		return nil, err
	}
	minPatch, err := envInt("MIN_PATCH_PIXELS", 3)
	if err != nil {
		return nil, err
	}
	maxPatch, err := envInt("MAX_PATCH_SIZE", 1024)
	if err != nil {
		return nil, err
	}
	maxSamples, err := envInt("ZONAL_MAX_SAMPLES", domain.DefaultMaxSamples)
	if err != nil {
		return nil, err
	}

	maxCloud, err := envFloat("MAX_CLOUD_COVER", 30)
	if err != nil {
		return nil, err
	}
	scale, err := envFloat("ZONAL_SCALE_M", 30)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := envDuration("ANALYSIS_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ScenesDir:   EnvOrDefault("SCENES_DIR", "data/scenes"),
		ScenesIndex: EnvOrDefault("SCENES_INDEX", "index.json"),
		RegionsFile: EnvOrDefault("REGIONS_FILE", "data/regions.geojson"),
		RegionName:  os.Getenv("REGION_NAME"),

		Periods:          periods,
		UHIPercentile:    percentile,
		MinPatchPixels:   minPatch,
		MaxPatchSizeHint: maxPatch,
		MaxCloudCover:    maxCloud,

		ZonalScaleM:     scale,
		ZonalMaxSamples: maxSamples,
		ZonalBestEffort: EnvOrDefault("ZONAL_BEST_EFFORT", "true") == "true",

		AnalysisInterval: interval,

		KafkaEnabled:   EnvOrDefault("KAFKA_ENABLED", "true") == "true",
		KafkaBrokers:   ParseBrokers(EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: EnvOrDefault("KAFKA_SINK_TOPIC", "heat-island-reports"),

		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.RegionName == "" {
		return nil, errors.New("REGION_NAME is required")
	}
	if len(cfg.Periods) == 0 {
		return nil, errors.New("ANALYSIS_PERIODS is required")
	}
	if cfg.UHIPercentile < 0 || cfg.UHIPercentile > 100 {
		return nil, fmt.Errorf("UHI_PERCENTILE %d out of range", cfg.UHIPercentile)
	}
	if cfg.MaxCloudCover < 0 || cfg.MaxCloudCover > 100 {
		return nil, fmt.Errorf("MAX_CLOUD_COVER %g out of range", cfg.MaxCloudCover)
	}
	if cfg.ZonalScaleM <= 0 {
		return nil, errors.New("ZONAL_SCALE_M must be positive")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// EnvOrDefault returns the environment variable's value, or def when unset
// or empty.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBrokers splits a comma-separated broker list, trimming whitespace and
// dropping empty entries.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ParsePeriods parses the ANALYSIS_PERIODS format:
//
//	label=2023-06-01..2023-09-01,other=2024-06-01..2024-09-01
//
// Dates are UTC days; the start is inclusive and the end exclusive.
func ParsePeriods(s string) ([]domain.Period, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []domain.Period
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, window, ok := strings.Cut(part, "=")
		if !ok || label == "" {
			return nil, fmt.Errorf("invalid period %q: want label=start..end", part)
		}
		startStr, endStr, ok := strings.Cut(window, "..")
		if !ok {
			return nil, fmt.Errorf("invalid period %q: want label=start..end", part)
		}
		start, err := time.Parse(time.DateOnly, startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q: %w", part, err)
		}
		end, err := time.Parse(time.DateOnly, endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid period %q: %w", part, err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("invalid period %q: end must follow start", part)
		}
		out = append(out, domain.Period{Label: label, Start: start, End: end})
	}
	return out, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
