// Package config holds the tunables shared by the engine and the CLI.
//
// Values come from three layers, later ones winning: built-in defaults,
// an optional YAML file, and GRIDCALC_* environment variables (which a
// .env file in the working directory may supply).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GRIDCALC_"

// Config is the full set of tunables.
type Config struct {
	// MaxIterations caps the rounds spent resolving one circular component.
	MaxIterations int `yaml:"max_iterations" validate:"gte=1,lte=10000"`

	// Tolerance is the largest change between rounds that counts as converged.
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`

	// MaxReportErrors caps the errors kept in a recalc report.
	MaxReportErrors int `yaml:"max_report_errors" validate:"gte=1"`

	// HotspotTop is how many hotspots the CLI prints.
	HotspotTop int `yaml:"hotspot_top" validate:"gte=0"`

	// ParseCacheSize is the number of parsed formulas kept; 0 disables the cache.
	ParseCacheSize int `yaml:"parse_cache_size" validate:"gte=0"`

	// JournalPath is the sqlite journal written by apply; empty disables it.
	JournalPath string `yaml:"journal_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxIterations:   100,
		Tolerance:       1e-9,
		MaxReportErrors: 100,
		HotspotTop:      10,
		ParseCacheSize:  4096,
		LogLevel:        "info",
	}
}

var validate = validator.New()

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. Missing files
// are not an error; variables already set are left alone.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"MAX_ITERATIONS":    &cfg.MaxIterations,
		"MAX_REPORT_ERRORS": &cfg.MaxReportErrors,
		"HOTSPOT_TOP":       &cfg.HotspotTop,
		"PARSE_CACHE_SIZE":  &cfg.ParseCacheSize,
	}
	for key, dst := range ints {
		raw, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}
	if raw, ok := lookup(EnvPrefix + "TOLERANCE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%sTOLERANCE: %w", EnvPrefix, err)
		}
		cfg.Tolerance = f
	}
	if raw, ok := lookup(EnvPrefix + "JOURNAL_PATH"); ok {
		cfg.JournalPath = raw
	}
	if raw, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw))
	}
	return nil
}
