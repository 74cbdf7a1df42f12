// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	DB        DBConfig        `mapstructure:"db"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SchedulerConfig controls the scrape cycle cadence.
type SchedulerConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	RunOnStart      bool `mapstructure:"run_on_start"`
}

// ScraperConfig governs the scrape pipeline.
type ScraperConfig struct {
	CentersURL        string `mapstructure:"centers_url"`
	IncidentsURL      string `mapstructure:"incidents_url"`
	UserAgent         string `mapstructure:"user_agent"`
	CenterDelaySec    int    `mapstructure:"center_delay_seconds"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryBaseDelaySec int    `mapstructure:"retry_base_delay_seconds"`
}

// HTTPConfig configures the plain HTTP fetch path.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless grid harvester.
type HeadlessConfig struct {
	MaxParallel       int `mapstructure:"max_parallel"`
	NavTimeoutSec     int `mapstructure:"nav_timeout_seconds"`
	GridSettleSec     int `mapstructure:"grid_settle_seconds"`
	MaxScrollAttempts int `mapstructure:"max_scroll_attempts"`
	DefaultTargetRows int `mapstructure:"default_target_rows"`
	TargetGrowth      int `mapstructure:"target_growth"`
}

// DBConfig controls access to the SQLite database file.
type DBConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// SnapshotsConfig sets raw HTML archiving behavior.
type SnapshotsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ServerConfig controls the observability HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and the log directory.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Dir         string `mapstructure:"dir"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the deployment contract exposes these without the prefix
	if err := v.BindEnv("scheduler.interval_seconds", "SCRAPER_SCHEDULER_INTERVAL_SECONDS", "SCRAPE_INTERVAL"); err != nil {
		return Config{}, fmt.Errorf("bind interval env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.interval_seconds", 10800)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scraper.centers_url", "http://www.wildcad.net/WildCADWeb.asp")
	v.SetDefault("scraper.incidents_url", "https://www.wildwebe.net/incidents")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.center_delay_seconds", 2)
	v.SetDefault("scraper.max_retries", 5)
	v.SetDefault("scraper.retry_base_delay_seconds", 5)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 120)
	v.SetDefault("headless.grid_settle_seconds", 10)
	v.SetDefault("headless.max_scroll_attempts", 100)
	v.SetDefault("headless.default_target_rows", 250)
	v.SetDefault("headless.target_growth", 50)
	v.SetDefault("db.path", "./data/db/wildweb.db")
	v.SetDefault("db.busy_timeout_ms", 5000)
	v.SetDefault("snapshots.enabled", false)
	v.SetDefault("snapshots.dir", "./data/snapshots")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.dir", "./logs")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.interval_seconds must be > 0")
	}
	if c.Scraper.CentersURL == "" {
		return fmt.Errorf("scraper.centers_url is required")
	}
	if c.Scraper.IncidentsURL == "" {
		return fmt.Errorf("scraper.incidents_url is required")
	}
	if c.Scraper.MaxRetries <= 0 {
		return fmt.Errorf("scraper.max_retries must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// Interval converts the scheduler interval into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

// CenterDelay converts the per-center pacing delay into a duration.
func (c Config) CenterDelay() time.Duration {
	return time.Duration(c.Scraper.CenterDelaySec) * time.Second
}
