package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/tracks", cfg.TracksDir)
	assert.Equal(t, "data/periods", cfg.PeriodsDir)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.Empty(t, cfg.ClustersFile)
	assert.Equal(t, 1, cfg.ClusterOffset)
	assert.Empty(t, cfg.Region)
	assert.Equal(t, "SAt", cfg.Scope())
	assert.Equal(t, []domain.Season{domain.SeasonJJA, domain.SeasonDJF, domain.AllYear}, cfg.Seasons)
	assert.Equal(t, "SAt", cfg.PeriodsPrefix)
	assert.Equal(t, 64, cfg.Density.K)
	assert.Equal(t, 0.05, cfg.Density.Bandwidth)
	assert.Equal(t, 8.0, cfg.Density.CutoffBandwidths)
	assert.Equal(t, phase.DefaultOptions(), cfg.SegmentOptions)
	assert.Equal(t, 1000, cfg.SegmentCacheSize)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "cyclone-periods", cfg.KafkaPeriodsTopic)
	assert.Empty(t, cfg.PushgatewayURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("TRACKS_DIR", "/in")
	t.Setenv("PERIODS_DIR", "/periods")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("CLUSTERS_FILE", "/in/clusters.csv")
	t.Setenv("CLUSTER_OFFSET", "0")
	t.Setenv("REGION", "se-br")
	t.Setenv("SEASONS", "DJF, MAM")
	t.Setenv("PERIODS_PREFIX", "SE-BR")
	t.Setenv("DENSITY_GRID_K", "32")
	t.Setenv("DENSITY_BANDWIDTH", "0.08")
	t.Setenv("DENSITY_CUTOFF", "0")
	t.Setenv("SEGMENT_USE_FILTER", "true")
	t.Setenv("SEGMENT_USE_SMOOTHING", "false")
	t.Setenv("SEGMENT_USE_SMOOTHING_TWICE", "true")
	t.Setenv("SEGMENT_CACHE_SIZE", "0")
	t.Setenv("WORKERS", "3")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_PERIODS_TOPIC", "periods")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in", cfg.TracksDir)
	assert.Equal(t, "/periods", cfg.PeriodsDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, "/in/clusters.csv", cfg.ClustersFile)
	assert.Equal(t, 0, cfg.ClusterOffset)
	assert.Equal(t, "SE-BR", cfg.Region)
	assert.Equal(t, "SE-BR", cfg.Scope())
	assert.Equal(t, []domain.Season{domain.SeasonDJF, domain.SeasonMAM}, cfg.Seasons)
	assert.Equal(t, "SE-BR", cfg.PeriodsPrefix)
	assert.Equal(t, 32, cfg.Density.K)
	assert.Equal(t, 0.08, cfg.Density.Bandwidth)
	assert.Equal(t, 0.0, cfg.Density.CutoffBandwidths)
	assert.Equal(t, phase.On, cfg.SegmentOptions.UseFilter)
	assert.Equal(t, phase.Off, cfg.SegmentOptions.UseSmoothing)
	assert.Equal(t, phase.On, cfg.SegmentOptions.UseSmoothingTwice)
	assert.Equal(t, 0, cfg.SegmentCacheSize)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "periods", cfg.KafkaPeriodsTopic)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"BATCH_SIZE", "0", "BATCH_SIZE"},
		{"BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"WORKERS", "0", "WORKERS"},
		{"WORKERS", "many", "WORKERS"},
		{"CLUSTER_OFFSET", "one", "CLUSTER_OFFSET"},
		{"SEGMENT_CACHE_SIZE", "-1", "SEGMENT_CACHE_SIZE"},
		{"DENSITY_GRID_K", "1", "DENSITY_"},
		{"DENSITY_BANDWIDTH", "wide", "DENSITY_BANDWIDTH"},
		{"DENSITY_BANDWIDTH", "-0.1", "DENSITY_"},
		{"DENSITY_CUTOFF", "-2", "DENSITY_"},
		{"SEGMENT_USE_FILTER", "sometimes", "SEGMENT_USE_FILTER"},
		{"SEASONS", "WINTER", "SEASONS"},
		{"SEASONS", " , ", "SEASONS"},
		{"REGION", "ATLANTIS", "REGION"},
	}
	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
