package producer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	StreamName      string
	Prefix          string
	ProducerID      string
	BatchSize       int
	Interval        time.Duration
	CreateStream    bool
	UserCardinality int
	Seed            int64
}

func DefaultConfig() Config {
	return Config{
		StreamName:      "events",
		Prefix:          "demo",
		ProducerID:      "demo-producer",
		BatchSize:       25,
		Interval:        time.Second,
		CreateStream:    true,
		UserCardinality: 200,
		Seed:            time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "THRIFTDB_DEMO_STREAM", &cfg.StreamName); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_DEMO_PREFIX", &cfg.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "THRIFTDB_DEMO_PRODUCER_ID", &cfg.ProducerID); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "THRIFTDB_DEMO_BATCH_SIZE", &cfg.BatchSize); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "THRIFTDB_DEMO_INTERVAL", &cfg.Interval); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "THRIFTDB_DEMO_CREATE_STREAM", &cfg.CreateStream); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "THRIFTDB_DEMO_USER_CARDINALITY", &cfg.UserCardinality); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "THRIFTDB_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.StreamName) == "" {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_STREAM is required")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_PREFIX is required")
	}
	if strings.TrimSpace(cfg.ProducerID) == "" {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_PRODUCER_ID is required")
	}
	if cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_BATCH_SIZE must be > 0")
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_INTERVAL must be > 0")
	}
	if cfg.UserCardinality <= 0 {
		return Config{}, fmt.Errorf("THRIFTDB_DEMO_USER_CARDINALITY must be > 0")
	}

	cfg.StreamName = strings.TrimSpace(cfg.StreamName)
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	cfg.ProducerID = strings.TrimSpace(cfg.ProducerID)
	return cfg, nil
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
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
