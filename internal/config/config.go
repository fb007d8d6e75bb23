package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/density"
	"github.com/couchcryptid/cyclone-climatology/internal/domain"
	"github.com/couchcryptid/cyclone-climatology/internal/phase"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	TracksDir     string
	PeriodsDir    string
	OutputDir     string
	ClustersFile  string
	ClusterOffset int
	Region        string // empty for the whole South Atlantic
	Seasons       []domain.Season
	PeriodsPrefix string

	Density density.Params

	SegmentOptions   phase.Options
	SegmentCacheSize int

	Workers   int
	BatchSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional publishing of segmented periods.
	KafkaBrokers      []string
	KafkaPeriodsTopic string

	PushgatewayURL string
}

// KafkaEnabled reports whether periods are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	workers, err := positiveInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	clusterOffset, err := intVar("CLUSTER_OFFSET", 1)
	if err != nil {
		return nil, err
	}
	cacheSize, err := intVar("SEGMENT_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if cacheSize < 0 {
		return nil, errors.New("invalid SEGMENT_CACHE_SIZE: must not be negative")
	}

	params, err := parseDensityParams()
	if err != nil {
		return nil, err
	}
	opts, err := parseSegmentOptions()
	if err != nil {
		return nil, err
	}
	seasons, err := parseSeasons(sharedcfg.EnvOrDefault("SEASONS", "JJA,DJF,ALL"))
	if err != nil {
		return nil, err
	}

	region := sharedcfg.EnvOrDefault("REGION", "")
	if region != "" {
		r, err := domain.LookupRegion(region)
		if err != nil {
			return nil, fmt.Errorf("invalid REGION: %w", err)
		}
		region = r.Name
	}

	var brokers []string
	if s := os.Getenv("KAFKA_BROKERS"); s != "" {
		brokers = sharedcfg.ParseBrokers(s)
	}

	cfg := &Config{
		TracksDir:     sharedcfg.EnvOrDefault("TRACKS_DIR", "data/tracks"),
		PeriodsDir:    sharedcfg.EnvOrDefault("PERIODS_DIR", "data/periods"),
		OutputDir:     sharedcfg.EnvOrDefault("OUTPUT_DIR", "results"),
		ClustersFile:  sharedcfg.EnvOrDefault("CLUSTERS_FILE", ""),
		ClusterOffset: clusterOffset,
		Region:        region,
		Seasons:       seasons,
		PeriodsPrefix: sharedcfg.EnvOrDefault("PERIODS_PREFIX", "SAt"),

		Density: params,

		SegmentOptions:   opts,
		SegmentCacheSize: cacheSize,

		Workers:   workers,
		BatchSize: batchSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ""),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:      brokers,
		KafkaPeriodsTopic: sharedcfg.EnvOrDefault("KAFKA_PERIODS_TOPIC", "cyclone-periods"),

		PushgatewayURL: sharedcfg.EnvOrDefault("PUSHGATEWAY_URL", ""),
	}

	if cfg.PeriodsPrefix == "" {
		return nil, errors.New("PERIODS_PREFIX is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaPeriodsTopic == "" {
		return nil, errors.New("KAFKA_PERIODS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Scope names the output scope: the region, or SAt for the whole basin.
func (c *Config) Scope() string {
	if c.Region == "" {
		return "SAt"
	}
	return c.Region
}

func intVar(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func positiveInt(key string, def int) (int, error) {
	n, err := intVar(key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func floatVar(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDensityParams() (density.Params, error) {
	p := density.DefaultParams()
	var err error
	if p.K, err = positiveInt("DENSITY_GRID_K", p.K); err != nil {
		return p, err
	}
	if p.Bandwidth, err = floatVar("DENSITY_BANDWIDTH", p.Bandwidth); err != nil {
		return p, err
	}
	if p.CutoffBandwidths, err = floatVar("DENSITY_CUTOFF", p.CutoffBandwidths); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid DENSITY_* settings: %w", err)
	}
	return p, nil
}

func parseSegmentOptions() (phase.Options, error) {
	o := phase.DefaultOptions()
	toggles := []struct {
		key string
		def string
		dst *phase.Toggle
	}{
		{"SEGMENT_USE_FILTER", "false", &o.UseFilter},
		{"SEGMENT_USE_SMOOTHING", "auto", &o.UseSmoothing},
		{"SEGMENT_USE_SMOOTHING_TWICE", "auto", &o.UseSmoothingTwice},
	}
	for _, tg := range toggles {
		v, err := phase.ParseToggle(sharedcfg.EnvOrDefault(tg.key, tg.def))
		if err != nil {
			return o, fmt.Errorf("invalid %s: %w", tg.key, err)
		}
		*tg.dst = v
	}
	return o, nil
}

func parseSeasons(s string) ([]domain.Season, error) {
	var out []domain.Season
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		season, err := domain.ParseSeason(part)
		if err != nil {
			return nil, fmt.Errorf("invalid SEASONS: %w", err)
		}
		out = append(out, season)
	}
	if len(out) == 0 {
		return nil, errors.New("SEASONS is required")
	}
	return out, nil
}
