package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxSpeedByMode is applied when maxSpeedByMode is absent, km/h.
var DefaultMaxSpeedByMode = map[string]float64{
	"tram":       100,
	"metro":      110,
	"rail":       300,
	"bus":        120,
	"ferry":      80,
	"cable":      50,
	"gondola":    50,
	"funicular":  50,
	"trolleybus": 100,
	"monorail":   110,
}

// Default returns a configuration with working match parameters.
func Default() AppConfig {
	return AppConfig{
		Normalize: NormalizeConfig{
			MaxSpeedByMode:     DefaultMaxSpeedByMode,
			CoordinateDecimals: 6,
		},
		Match: MatchConfig{
			SearchRadiusM:       50,
			EmissionSigmaM:      10,
			TransitionDecay:     "exponential",
			TransitionDecayRate: 2,
			PathDistanceCutoffM: 2000,
			MaxGapFraction:      0.25,
			Workers:             4,
			CRS:                 4326,
		},
	}
}

// Load reads and validates the configuration file. A missing path yields the
// defaults. Sink settings may be overridden through the environment
// (POSTGRES_DSN, NATS_URL, METRICS_ADDR), optionally loaded from a .env file.
func Load(path string) (AppConfig, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Sinks.PostgresDSN = dsn
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.Sinks.NATSURL = url
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Sinks.MetricsAddr = addr
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate fails fast on invalid matching or normalization parameters, before
// any feed processing begins.
func Validate(cfg AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg.Normalize); err != nil {
		return err
	}
	return v.Struct(cfg.Match)
}
