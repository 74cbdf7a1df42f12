package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 10800, cfg.Scheduler.IntervalSeconds)
	require.True(t, cfg.Scheduler.RunOnStart)
	require.Equal(t, 3*time.Hour, cfg.Interval())
	require.Equal(t, "http://www.wildcad.net/WildCADWeb.asp", cfg.Scraper.CentersURL)
	require.Equal(t, 5, cfg.Scraper.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.CenterDelay())
	require.Equal(t, 250, cfg.Headless.DefaultTargetRows)
	require.Equal(t, 50, cfg.Headless.TargetGrowth)
	require.Equal(t, "./data/db/wildweb.db", cfg.DB.Path)
	require.False(t, cfg.Snapshots.Enabled)
	require.True(t, cfg.Server.Enabled)
	require.Equal(t, 8080, cfg.Server.Port)
}

// TestLoadScrapeIntervalEnv checks the unprefixed deployment variable wins.
func TestLoadScrapeIntervalEnv(t *testing.T) {
	t.Setenv("SCRAPE_INTERVAL", "600")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 600, cfg.Scheduler.IntervalSeconds)
	require.Equal(t, 10*time.Minute, cfg.Interval())
}

func TestLoadPrefixedEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_DB_PATH", "/tmp/alt.db")
	t.Setenv("SCRAPER_SERVER_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/alt.db", cfg.DB.Path)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("scheduler:\n  interval_seconds: 60\nscraper:\n  center_delay_seconds: 0\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Scheduler.IntervalSeconds)
	require.Equal(t, time.Duration(0), cfg.CenterDelay())
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.IntervalSeconds = 0 }},
		{"missing centers url", func(c *Config) { c.Scraper.CentersURL = "" }},
		{"missing incidents url", func(c *Config) { c.Scraper.IncidentsURL = "" }},
		{"zero retries", func(c *Config) { c.Scraper.MaxRetries = 0 }},
		{"zero http timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"zero headless parallel", func(c *Config) { c.Headless.MaxParallel = 0 }},
		{"missing db path", func(c *Config) { c.DB.Path = "" }},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
