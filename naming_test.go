package thriftdb

import (
	"errors"
	"testing"
)

func TestTableName(t *testing.T) {
	cases := []struct {
		prefix, name string
		want         string
		wantErr      bool
	}{
		{"logs", "visits", "logs_visits", false},
		{" logs ", " visits ", "logs_visits", false},
		{"", "", "", true},
		{"  ", "  ", "", true},
	}
	for _, tc := range cases {
		got, err := TableName(tc.prefix, tc.name)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("TableName(%q, %q) error = %v, want ErrInvalidName", tc.prefix, tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("TableName(%q, %q) error = %v", tc.prefix, tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("TableName(%q, %q) = %q, want %q", tc.prefix, tc.name, got, tc.want)
		}
	}
}

func TestDataKeyRepeatsNameAsLeaf(t *testing.T) {
	key, err := DataKey("logs", "visits")
	if err != nil {
		t.Fatalf("DataKey() error = %v", err)
	}
	if key != "logs/visits/visits" {
		t.Fatalf("DataKey() = %q", key)
	}

	if _, err := DataKey("", "visits"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("DataKey with empty prefix error = %v", err)
	}
	if _, err := DataKey("logs", " "); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("DataKey with blank name error = %v", err)
	}
}

func TestTablePrefix(t *testing.T) {
	prefix, err := TablePrefix("logs", "visits")
	if err != nil {
		t.Fatalf("TablePrefix() error = %v", err)
	}
	if prefix != "logs/visits/" {
		t.Fatalf("TablePrefix() = %q", prefix)
	}
}

func TestStreamPrefix(t *testing.T) {
	prefix, err := StreamPrefix("logs/", "visits")
	if err != nil {
		t.Fatalf("StreamPrefix() error = %v", err)
	}
	if prefix != "logs/visits/" {
		t.Fatalf("StreamPrefix() = %q", prefix)
	}
}
