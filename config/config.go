package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Region        string
	ObjectStore   ObjectStoreConfig
	Query         QueryConfig
	Crawler       CrawlerConfig
	Delivery      DeliveryConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type ObjectStoreConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type QueryConfig struct {
	ResultsPrefix string
	PollInterval  time.Duration
	MaxWait       time.Duration
}

type CrawlerConfig struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

type DeliveryConfig struct {
	BufferSizeMB          int
	BufferIntervalSeconds int
	Compression           string
	PollInterval          time.Duration
	MaxWait               time.Duration
	Workers               int
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("THRIFTDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid THRIFTDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "THRIFTDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_REGION", &cfg.Region); err != nil {
		return Config{}, err
	}
	if cfg.Region == "" {
		if raw, ok := lookup("AWS_DEFAULT_REGION"); ok {
			cfg.Region = strings.TrimSpace(raw)
		}
	}
	if err := applyString(lookup, "THRIFTDB_S3_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_S3_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_S3_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "THRIFTDB_S3_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_QUERY_RESULTS_PREFIX", &cfg.Query.ResultsPrefix); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_QUERY_POLL_INTERVAL", &cfg.Query.PollInterval); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_QUERY_MAX_WAIT", &cfg.Query.MaxWait); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_CRAWLER_POLL_INTERVAL", &cfg.Crawler.PollInterval); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_CRAWLER_MAX_WAIT", &cfg.Crawler.MaxWait); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "THRIFTDB_DELIVERY_BUFFER_MB", &cfg.Delivery.BufferSizeMB); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "THRIFTDB_DELIVERY_BUFFER_SECONDS", &cfg.Delivery.BufferIntervalSeconds); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_DELIVERY_COMPRESSION", &cfg.Delivery.Compression); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_DELIVERY_POLL_INTERVAL", &cfg.Delivery.PollInterval); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_DELIVERY_MAX_WAIT", &cfg.Delivery.MaxWait); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "THRIFTDB_DELIVERY_WORKERS", &cfg.Delivery.Workers); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "THRIFTDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "THRIFTDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Query.ResultsPrefix == "" {
		return Config{}, fmt.Errorf("query results prefix is required")
	}
	if cfg.Delivery.Workers <= 0 {
		return Config{}, fmt.Errorf("delivery workers must be positive")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "thriftdb"},
		Region:  "us-east-1",
		Query: QueryConfig{
			ResultsPrefix: "results/",
			PollInterval:  2 * time.Second,
			MaxWait:       10 * time.Minute,
		},
		Crawler: CrawlerConfig{
			PollInterval: 60 * time.Second,
			MaxWait:      0,
		},
		Delivery: DeliveryConfig{
			BufferSizeMB:          5,
			BufferIntervalSeconds: 300,
			Compression:           "UNCOMPRESSED",
			PollInterval:          10 * time.Second,
			MaxWait:               5 * time.Minute,
			Workers:               4,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
