package producer

import (
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(nil))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.StreamName != "events" || cfg.Prefix != "demo" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.BatchSize != 25 || cfg.Interval != time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.CreateStream {
		t.Fatal("CreateStream should default to true")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapLookup(map[string]string{
		"THRIFTDB_DEMO_STREAM":        "visits",
		"THRIFTDB_DEMO_PREFIX":        "raw",
		"THRIFTDB_DEMO_BATCH_SIZE":    "100",
		"THRIFTDB_DEMO_INTERVAL":      "250ms",
		"THRIFTDB_DEMO_CREATE_STREAM": "false",
		"THRIFTDB_DEMO_SEED":          "42",
	}))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.StreamName != "visits" || cfg.Prefix != "raw" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.BatchSize != 100 || cfg.Interval != 250*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CreateStream || cfg.Seed != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad batch size":  {"THRIFTDB_DEMO_BATCH_SIZE": "zero"},
		"zero batch size": {"THRIFTDB_DEMO_BATCH_SIZE": "0"},
		"bad interval":    {"THRIFTDB_DEMO_INTERVAL": "soon"},
		"blank stream":    {"THRIFTDB_DEMO_STREAM": "  "},
	}
	for name, values := range cases {
		if _, err := LoadConfigFromEnv(mapLookup(values)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
