package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

const testPeriods = "summer-2023=2023-06-01..2023-09-01,summer-2024=2024-06-01..2024-09-01"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REGION_NAME", "downtown")
	t.Setenv("ANALYSIS_PERIODS", testPeriods)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/scenes", cfg.ScenesDir)
	assert.Equal(t, "index.json", cfg.ScenesIndex)
	assert.Equal(t, "data/regions.geojson", cfg.RegionsFile)
	assert.Equal(t, "downtown", cfg.RegionName)

	assert.Equal(t, 90, cfg.UHIPercentile)
	assert.Equal(t, 3, cfg.MinPatchPixels)
	assert.Equal(t, 1024, cfg.MaxPatchSizeHint)
	assert.Equal(t, 30.0, cfg.MaxCloudCover)

	assert.Equal(t, 30.0, cfg.ZonalScaleM)
	assert.Equal(t, domain.DefaultMaxSamples, cfg.ZonalMaxSamples)
	assert.True(t, cfg.ZonalBestEffort)

	assert.Equal(t, time.Duration(0), cfg.AnalysisInterval)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "heat-island-reports", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("SCENES_DIR", "/var/lib/scenes")
	t.Setenv("SCENES_INDEX", "catalog.json")
	t.Setenv("REGIONS_FILE", "/etc/uhi/regions.geojson")
	t.Setenv("UHI_PERCENTILE", "95")
	t.Setenv("MIN_PATCH_PIXELS", "5")
	t.Setenv("MAX_PATCH_SIZE", "2048")
	t.Setenv("MAX_CLOUD_COVER", "20")
	t.Setenv("ZONAL_SCALE_M", "60")
	t.Setenv("ZONAL_MAX_SAMPLES", "500000")
	t.Setenv("ZONAL_BEST_EFFORT", "false")
	t.Setenv("ANALYSIS_INTERVAL", "6h")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-reports")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/scenes", cfg.ScenesDir)
	assert.Equal(t, "catalog.json", cfg.ScenesIndex)
	assert.Equal(t, "/etc/uhi/regions.geojson", cfg.RegionsFile)
	assert.Equal(t, 95, cfg.UHIPercentile)
	assert.Equal(t, 5, cfg.MinPatchPixels)
	assert.Equal(t, 2048, cfg.MaxPatchSizeHint)
	assert.Equal(t, 20.0, cfg.MaxCloudCover)
	assert.Equal(t, 60.0, cfg.ZonalScaleM)
	assert.Equal(t, 500000, cfg.ZonalMaxSamples)
	assert.False(t, cfg.ZonalBestEffort)
	assert.Equal(t, 6*time.Hour, cfg.AnalysisInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-reports", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_KafkaDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", " ")

	cfg, err := Load()
	require.NoError(t, err, "broker validation is skipped when the sink is disabled")
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_RequiresRegionName(t *testing.T) {
	t.Setenv("ANALYSIS_PERIODS", testPeriods)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGION_NAME")
}

func TestLoad_RequiresPeriods(t *testing.T) {
	t.Setenv("REGION_NAME", "downtown")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYSIS_PERIODS")
}

func TestLoad_InvalidPercentile(t *testing.T) {
	setRequired(t)
	t.Setenv("UHI_PERCENTILE", "101")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UHI_PERCENTILE")
}

func TestLoad_InvalidCloudCover(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_CLOUD_COVER", "150")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CLOUD_COVER")
}

func TestLoad_InvalidScale(t *testing.T) {
	setRequired(t)
	t.Setenv("ZONAL_SCALE_M", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZONAL_SCALE_M")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("ANALYSIS_INTERVAL", "-1h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYSIS_INTERVAL")
}

func TestParsePeriods(t *testing.T) {
	periods, err := ParsePeriods(testPeriods)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	assert.Equal(t, "summer-2023", periods[0].Label)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), periods[0].Start)
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), periods[0].End)
	assert.Equal(t, "summer-2024", periods[1].Label)
}

func TestParsePeriods_Invalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"missing label", "2023-06-01..2023-09-01"},
		{"missing range separator", "summer=2023-06-01"},
		{"bad date", "summer=2023-06-xx..2023-09-01"},
		{"end before start", "summer=2023-09-01..2023-06-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePeriods(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092 ,b:9092,"))
	assert.Nil(t, ParseBrokers(" , "))
}
