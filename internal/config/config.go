package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Mapbox geocoding and isochrone configuration.
	MapboxToken      string
	MapboxEnabled    bool
	MapboxTimeout    time.Duration
	MapboxCacheSize  int
	MapboxRateLimit  float64
	IsochroneProfile string
	IsochroneTTL     time.Duration

	// Catchment datasets.
	CentroidsSource        string
	CensusSources          []string
	DatasetTimeout         time.Duration
	DatasetRetryMaxBackoff time.Duration

	// OpenAI CV review configuration.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	NewsAPIKey        string
	NewsAPIBaseURL    string
	CoresignalKey     string
	CoresignalBaseURL string
	UpstreamTimeout   time.Duration

	// Report sinks. Both are disabled when left empty.
	KafkaBrokers       []string
	KafkaReportTopic   string
	BatchSize          int
	BatchFlushInterval time.Duration
	ReportsDBPath      string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	openAITimeout, err := parsePositiveDuration("OPENAI_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	isochroneTTL, err := parsePositiveDuration("ISOCHRONE_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	datasetTimeout, err := parsePositiveDuration("DATASET_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}
	retryMaxBackoff, err := parsePositiveDuration("DATASET_RETRY_MAX_BACKOFF", "30s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseRateLimit()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	batchFlushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		MapboxToken:      mapboxToken,
		MapboxEnabled:    mapboxEnabled,
		MapboxTimeout:    mapboxTimeout,
		MapboxCacheSize:  parseMapboxCacheSize(),
		MapboxRateLimit:  rateLimit,
		IsochroneProfile: sharedcfg.EnvOrDefault("ISOCHRONE_PROFILE", "driving"),
		IsochroneTTL:     isochroneTTL,

		CentroidsSource:        sharedcfg.EnvOrDefault("CENTROIDS_SOURCE", "data/oapwc.csv"),
		CensusSources:          splitList(sharedcfg.EnvOrDefault("CENSUS_SOURCES", "data/first_half.csv,data/second_half.csv")),
		DatasetTimeout:         datasetTimeout,
		DatasetRetryMaxBackoff: retryMaxBackoff,

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   sharedcfg.EnvOrDefault("OPENAI_MODEL", "gpt-4-turbo-2024-04-09"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAITimeout: openAITimeout,

		NewsAPIKey:        os.Getenv("NEWSAPI_KEY"),
		NewsAPIBaseURL:    sharedcfg.EnvOrDefault("NEWSAPI_BASE_URL", "https://newsapi.org/v2"),
		CoresignalKey:     os.Getenv("CORESIGNAL_API_KEY"),
		CoresignalBaseURL: sharedcfg.EnvOrDefault("CORESIGNAL_BASE_URL", "https://api.coresignal.com/cdapi/v1"),
		UpstreamTimeout:   upstreamTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "catchment-reports"),
		BatchSize:          batchSize,
		BatchFlushInterval: batchFlushInterval,
		ReportsDBPath:      os.Getenv("REPORTS_DB_PATH"),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if !domain.ValidProfile(cfg.IsochroneProfile) {
		return nil, fmt.Errorf("invalid ISOCHRONE_PROFILE %q", cfg.IsochroneProfile)
	}
	if cfg.CentroidsSource == "" {
		return nil, errors.New("CENTROIDS_SOURCE is required")
	}
	if len(cfg.CensusSources) == 0 {
		return nil, errors.New("CENSUS_SOURCES is required")
	}

	return cfg, nil
}

// KafkaEnabled reports whether catchment reports should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaReportTopic != ""
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRateLimit() (float64, error) {
	s := sharedcfg.EnvOrDefault("MAPBOX_RATE_LIMIT", "5")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid MAPBOX_RATE_LIMIT: must be a positive number")
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
