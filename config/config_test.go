package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"zero search radius", func(c *AppConfig) { c.Match.SearchRadiusM = 0 }},
		{"negative sigma", func(c *AppConfig) { c.Match.EmissionSigmaM = -1 }},
		{"unknown decay", func(c *AppConfig) { c.Match.TransitionDecay = "linear" }},
		{"gap fraction above one", func(c *AppConfig) { c.Match.MaxGapFraction = 1.5 }},
		{"zero workers", func(c *AppConfig) { c.Match.Workers = 0 }},
		{"negative mode speed", func(c *AppConfig) { c.Normalize.MaxSpeedByMode = map[string]float64{"bus": -5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
match:
  searchRadiusM: 80
  transitionDecay: gaussian
normalize:
  coordinateDecimals: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match.SearchRadiusM != 80 {
		t.Errorf("searchRadiusM = %v, want 80", cfg.Match.SearchRadiusM)
	}
	if cfg.Match.TransitionDecay != "gaussian" {
		t.Errorf("transitionDecay = %q, want gaussian", cfg.Match.TransitionDecay)
	}
	if cfg.Normalize.CoordinateDecimals != 5 {
		t.Errorf("coordinateDecimals = %d, want 5", cfg.Normalize.CoordinateDecimals)
	}
	// untouched fields keep defaults
	if cfg.Match.EmissionSigmaM != Default().Match.EmissionSigmaM {
		t.Errorf("emissionSigmaM changed unexpectedly: %v", cfg.Match.EmissionSigmaM)
	}
}

func TestLoadInvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("match:\n  searchRadiusM: -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestEnvOverridesSinks(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/test")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("METRICS_ADDR", ":9102")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sinks.PostgresDSN != "postgres://localhost/test" {
		t.Errorf("PostgresDSN = %q", cfg.Sinks.PostgresDSN)
	}
	if cfg.Sinks.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.Sinks.NATSURL)
	}
	if cfg.Sinks.MetricsAddr != ":9102" {
		t.Errorf("MetricsAddr = %q", cfg.Sinks.MetricsAddr)
	}
}
