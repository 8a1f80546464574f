// Package config provides YAML-based configuration loading for outreach.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level outreach configuration, loaded from outreach.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Window    WindowConfig    `yaml:"window"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Progress  ProgressConfig  `yaml:"progress"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
	Tenants   []TenantConfig  `yaml:"tenants"`
}

// DatabaseConfig selects and addresses the backing store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// WindowConfig is the daily wall-clock sending window, "HH:MM" local time.
type WindowConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// SchedulerConfig tunes the run coordinator and the daily trigger.
type SchedulerConfig struct {
	DefaultDailyLimit int    `yaml:"default_daily_limit"`
	BatchSize         int    `yaml:"batch_size"`
	PollIntervalMS    int    `yaml:"poll_interval_ms"`
	DailyTrigger      string `yaml:"daily_trigger"`
}

// ProgressConfig tunes the per-tenant progress channel.
type ProgressConfig struct {
	BufferSize   int `yaml:"buffer_size"`
	HeartbeatSec int `yaml:"heartbeat_sec"`
}

// DispatchConfig tunes the outbound gateway client.
type DispatchConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec"`
	TimeoutSec int     `yaml:"timeout_sec"`
}

// NotifyConfig holds run-summary notification sinks.
type NotifyConfig struct {
	Slack   ChannelConfig `yaml:"slack"`
	Discord ChannelConfig `yaml:"discord"`
}

// ChannelConfig addresses one chat channel for run summaries.
type ChannelConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig holds HTTP API settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console *bool  `yaml:"console"`
}

// TenantConfig seeds a tenant_settings row.
type TenantConfig struct {
	Slug            string            `yaml:"slug"`
	AutoRun         bool              `yaml:"auto_run"`
	UseDispatcher   *bool             `yaml:"use_dispatcher"`
	DailyLimit      int               `yaml:"daily_limit"`
	MessageTemplate string            `yaml:"message_template"`
	Credentials     map[string]string `yaml:"credentials"`
}

// DispatcherEnabled reports the tenant's use_dispatcher flag (default true).
func (t TenantConfig) DispatcherEnabled() bool {
	return t.UseDispatcher == nil || *t.UseDispatcher
}

// SlugPattern is the accepted shape of a tenant slug.
var SlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// CronParser parses the standard 5-field cron expressions used by daily_trigger.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "outreach.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "outreach"
		}
	}
	if c.Window.Start == "" {
		c.Window.Start = "09:00"
	}
	if c.Window.End == "" {
		c.Window.End = "18:00"
	}
	if c.Scheduler.DefaultDailyLimit == 0 {
		c.Scheduler.DefaultDailyLimit = 50
	}
	if c.Scheduler.PollIntervalMS == 0 {
		c.Scheduler.PollIntervalMS = 250
	}
	if c.Scheduler.DailyTrigger == "" {
		c.Scheduler.DailyTrigger = "0 9 * * *"
	}
	if c.Progress.BufferSize == 0 {
		c.Progress.BufferSize = 200
	}
	if c.Progress.HeartbeatSec == 0 {
		c.Progress.HeartbeatSec = 15
	}
	if c.Dispatch.RatePerSec == 0 {
		c.Dispatch.RatePerSec = 1
	}
	if c.Dispatch.TimeoutSec == 0 {
		c.Dispatch.TimeoutSec = 30
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Console == nil {
		console := true
		c.Log.Console = &console
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}

	start, startErr := ParseClock(c.Window.Start)
	if startErr != nil {
		errs = append(errs, fmt.Sprintf("window.start: %v", startErr))
	}
	end, endErr := ParseClock(c.Window.End)
	if endErr != nil {
		errs = append(errs, fmt.Sprintf("window.end: %v", endErr))
	}
	if startErr == nil && endErr == nil && end <= start {
		errs = append(errs, "window.end must be after window.start")
	}

	if c.Scheduler.DefaultDailyLimit < 0 {
		errs = append(errs, "scheduler.default_daily_limit must be positive")
	}
	if c.Scheduler.BatchSize < 0 {
		errs = append(errs, "scheduler.batch_size must not be negative")
	}
	if c.Scheduler.PollIntervalMS < 0 {
		errs = append(errs, "scheduler.poll_interval_ms must be positive")
	}
	if _, err := CronParser.Parse(c.Scheduler.DailyTrigger); err != nil {
		errs = append(errs, fmt.Sprintf("scheduler.daily_trigger: %v", err))
	}
	if c.Progress.BufferSize < 0 {
		errs = append(errs, "progress.buffer_size must be positive")
	}
	if c.Notify.Slack.Enabled && (c.Notify.Slack.BotToken == "" || c.Notify.Slack.ChannelID == "") {
		errs = append(errs, "notify.slack requires bot_token and channel_id")
	}
	if c.Notify.Discord.Enabled && (c.Notify.Discord.BotToken == "" || c.Notify.Discord.ChannelID == "") {
		errs = append(errs, "notify.discord requires bot_token and channel_id")
	}

	seen := make(map[string]bool)
	for i, t := range c.Tenants {
		if !SlugPattern.MatchString(t.Slug) {
			errs = append(errs, fmt.Sprintf("tenants[%d].slug %q is invalid", i, t.Slug))
			continue
		}
		if seen[t.Slug] {
			errs = append(errs, fmt.Sprintf("tenants[%d].slug %q is duplicated", i, t.Slug))
		}
		seen[t.Slug] = true
		if t.DailyLimit < 0 {
			errs = append(errs, fmt.Sprintf("tenants[%d].daily_limit must be positive", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PollInterval returns the abortable-sleep polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalMS) * time.Millisecond
}

// HeartbeatInterval returns the progress heartbeat interval.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Progress.HeartbeatSec) * time.Second
}

// WindowBounds returns the sending window as offsets from local midnight.
func (c *Config) WindowBounds() (start, end time.Duration, err error) {
	if start, err = ParseClock(c.Window.Start); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(c.Window.End); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	layouts := []string{"15:04", "15:04:05"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
}
