package db

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://triage:pw@localhost:5432/triage")

	if cfg.DSN == "" {
		t.Fatal("expected DSN to be set")
	}
	if cfg.MaxConns < cfg.MinConns {
		t.Errorf("max conns %d below min conns %d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnLifetime != time.Hour {
		t.Errorf("unexpected lifetime: %v", cfg.MaxConnLifetime)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", DefaultConfig("postgres://u@h/db"), false},
		{"missing dsn", &Config{MaxConns: 2, MinConns: 1}, true},
		{"max below min", &Config{DSN: "postgres://u@h/db", MaxConns: 1, MinConns: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloseNilPool(t *testing.T) {
	Close(nil) // must not panic
}

func TestPoolStatsCollectorDescribe(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "archive")

	ch := make(chan *prometheus.Desc, 10)
	go func() {
		collector.Describe(ch)
		close(ch)
	}()

	var descs []*prometheus.Desc
	for desc := range ch {
		descs = append(descs, desc)
	}
	if len(descs) != 4 {
		t.Errorf("expected 4 descriptors, got %d", len(descs))
	}
}

func TestPoolStatsCollectorNilPoolCollectsNothing(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "archive")

	ch := make(chan prometheus.Metric, 10)
	collector.Collect(ch)
	close(ch)

	if len(ch) != 0 {
		t.Errorf("expected no metrics from nil pool, got %d", len(ch))
	}
}
