package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// CWA open-data forecast source.
	CWAAPIKey    string
	CWABaseURL   string
	CWADataset   string
	CWALocations []string
	ElementSet   string

	HTTPTimeout     time.Duration
	FetchMaxRetries int

	OutputDir    string
	ForecastFile string

	// GoOcean marine scrape.
	MarineEnabled bool
	MarineURL     string
	MarineFile    string

	// Optional Kafka sink; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	ScheduleInterval time.Duration
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	cfg, err := LoadBase()
	if err != nil {
		return nil, err
	}
	if cfg.CWAAPIKey == "" {
		return nil, errors.New("CWA_API_KEY is required")
	}
	return cfg, nil
}

// LoadBase is Load without the forecast API key requirement, for tools that
// never call the forecast API.
func LoadBase() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	httpTimeout, err := parsePositiveDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := parsePositiveDuration("SCHEDULE_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	maxRetries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 {
		return nil, errors.New("invalid FETCH_MAX_RETRIES")
	}

	marineEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("MARINE_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("invalid MARINE_ENABLED")
	}

	cfg := &Config{
		CWAAPIKey:    os.Getenv("CWA_API_KEY"),
		CWABaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("CWA_BASE_URL", "https://opendata.cwa.gov.tw/api/v1/rest/datastore"), "/"),
		CWADataset:   sharedcfg.EnvOrDefault("CWA_DATASET", "F-D0047-089"),
		CWALocations: sharedcfg.ParseBrokers(os.Getenv("CWA_LOCATIONS")),
		ElementSet:   sharedcfg.EnvOrDefault("CWA_ELEMENT_SET", "codes"),

		HTTPTimeout:     httpTimeout,
		FetchMaxRetries: maxRetries,

		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "quiz"),
		ForecastFile: sharedcfg.EnvOrDefault("FORECAST_FILE", "forecast_weather.json"),

		MarineEnabled: marineEnabled,
		MarineURL:     sharedcfg.EnvOrDefault("MARINE_URL", "https://goocean.namr.gov.tw/Information"),
		MarineFile:    sharedcfg.EnvOrDefault("MARINE_FILE", "gocean_live.json"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "normalized-forecasts"),

		ScheduleInterval: scheduleInterval,
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
	}

	switch cfg.ElementSet {
	case "codes", "labels":
	default:
		return nil, fmt.Errorf("invalid CWA_ELEMENT_SET %q: want codes or labels", cfg.ElementSet)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether outputs are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
