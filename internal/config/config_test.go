package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "gridcalc.yaml", "max_iterations: 20\ntolerance: 0.001\nlog_level: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 0.001, cfg.Tolerance)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Default().MaxReportErrors, cfg.MaxReportErrors)
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeFile(t, "gridcalc.yaml", "max_iteration: 20\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_iteration")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "gridcalc.yaml", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvWins(t *testing.T) {
	path := writeFile(t, "gridcalc.yaml", "max_iterations: 20\n")
	t.Setenv("GRIDCALC_MAX_ITERATIONS", "7")
	t.Setenv("GRIDCALC_JOURNAL_PATH", "/tmp/j.db")
	t.Setenv("GRIDCALC_LOG_LEVEL", "WARN")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, "/tmp/j.db", cfg.JournalPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("GRIDCALC_TOLERANCE", "tiny")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRIDCALC_TOLERANCE")
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero iterations":   func(c *Config) { c.MaxIterations = 0 },
		"huge iterations":   func(c *Config) { c.MaxIterations = 10001 },
		"zero tolerance":    func(c *Config) { c.Tolerance = 0 },
		"no report errors":  func(c *Config) { c.MaxReportErrors = 0 },
		"negative hotspots": func(c *Config) { c.HotspotTop = -1 },
		"negative cache":    func(c *Config) { c.ParseCacheSize = -1 },
		"bad level":         func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadEnv_MissingFileIgnored(t *testing.T) {
	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadEnv_SetsVariables(t *testing.T) {
	path := writeFile(t, "test.env", "GRIDCALC_HOTSPOT_TOP=3\n")
	t.Setenv("GRIDCALC_HOTSPOT_TOP", "")
	os.Unsetenv("GRIDCALC_HOTSPOT_TOP")
	require.NoError(t, LoadEnv(path))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.HotspotTop)
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
	cfg.LogLevel = "debug"
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
}
