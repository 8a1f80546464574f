package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: outreach
  password: secret
  name: outreach_prod

window:
  start: "08:30"
  end: "17:45"

scheduler:
  default_daily_limit: 80
  batch_size: 20
  poll_interval_ms: 100
  daily_trigger: "15 8 * * 1-5"

progress:
  buffer_size: 50
  heartbeat_sec: 10

dispatch:
  rate_per_sec: 0.5
  timeout_sec: 12

notify:
  slack:
    enabled: true
    bot_token: xoxb-test
    channel_id: C01
  discord:
    enabled: false

dashboard:
  port: 9090

log:
  level: debug
  console: false

tenants:
  - slug: acme
    auto_run: true
    daily_limit: 30
    message_template: "Hi {{name}}"
    credentials:
      base_url: https://gw.example.com
      token: abc
  - slug: globex
    use_dispatcher: false
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "mysql")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if cfg.Database.Name != "outreach_prod" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "outreach_prod")
	}
	if cfg.Scheduler.DefaultDailyLimit != 80 {
		t.Errorf("DefaultDailyLimit = %d, want 80", cfg.Scheduler.DefaultDailyLimit)
	}
	if cfg.Scheduler.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.Scheduler.BatchSize)
	}
	if cfg.PollInterval() != 100*time.Millisecond {
		t.Errorf("PollInterval() = %v, want 100ms", cfg.PollInterval())
	}
	if cfg.HeartbeatInterval() != 10*time.Second {
		t.Errorf("HeartbeatInterval() = %v, want 10s", cfg.HeartbeatInterval())
	}
	if cfg.Dispatch.RatePerSec != 0.5 {
		t.Errorf("Dispatch.RatePerSec = %v, want 0.5", cfg.Dispatch.RatePerSec)
	}
	if !cfg.Notify.Slack.Enabled || cfg.Notify.Slack.ChannelID != "C01" {
		t.Errorf("Notify.Slack = %+v, want enabled on C01", cfg.Notify.Slack)
	}
	if *cfg.Log.Console {
		t.Error("Log.Console = true, want false")
	}
	if len(cfg.Tenants) != 2 {
		t.Fatalf("len(Tenants) = %d, want 2", len(cfg.Tenants))
	}

	acme := cfg.Tenants[0]
	if !acme.AutoRun || acme.DailyLimit != 30 {
		t.Errorf("Tenants[0] = %+v, want auto_run with limit 30", acme)
	}
	if !acme.DispatcherEnabled() {
		t.Error("Tenants[0].DispatcherEnabled() = false, want default true")
	}
	if acme.Credentials["base_url"] != "https://gw.example.com" {
		t.Errorf("Tenants[0].Credentials[base_url] = %q", acme.Credentials["base_url"])
	}
	if cfg.Tenants[1].DispatcherEnabled() {
		t.Error("Tenants[1].DispatcherEnabled() = true, want false")
	}

	start, end, err := cfg.WindowBounds()
	if err != nil {
		t.Fatalf("WindowBounds: %v", err)
	}
	if start != 8*time.Hour+30*time.Minute {
		t.Errorf("window start = %v, want 8h30m", start)
	}
	if end != 17*time.Hour+45*time.Minute {
		t.Errorf("window end = %v, want 17h45m", end)
	}
}

func TestParse_EmptyConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "outreach.db" {
		t.Errorf("Database.Path = %q, want outreach.db", cfg.Database.Path)
	}
	if cfg.Window.Start != "09:00" || cfg.Window.End != "18:00" {
		t.Errorf("Window = %+v, want 09:00-18:00", cfg.Window)
	}
	if cfg.Scheduler.DefaultDailyLimit != 50 {
		t.Errorf("DefaultDailyLimit = %d, want 50", cfg.Scheduler.DefaultDailyLimit)
	}
	if cfg.Scheduler.PollIntervalMS != 250 {
		t.Errorf("PollIntervalMS = %d, want 250", cfg.Scheduler.PollIntervalMS)
	}
	if cfg.Scheduler.DailyTrigger != "0 9 * * *" {
		t.Errorf("DailyTrigger = %q, want %q", cfg.Scheduler.DailyTrigger, "0 9 * * *")
	}
	if cfg.Progress.BufferSize != 200 {
		t.Errorf("BufferSize = %d, want 200", cfg.Progress.BufferSize)
	}
	if cfg.Progress.HeartbeatSec != 15 {
		t.Errorf("HeartbeatSec = %d, want 15", cfg.Progress.HeartbeatSec)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Dashboard.Port = %d, want 8080", cfg.Dashboard.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Console == nil || !*cfg.Log.Console {
		t.Errorf("Log = %+v, want info console", cfg.Log)
	}
}

func TestParse_MySQLDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: mysql\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "127.0.0.1" || cfg.Database.Port != 3306 {
		t.Errorf("Database = %+v, want 127.0.0.1:3306", cfg.Database)
	}
	if cfg.Database.User != "root" || cfg.Database.Name != "outreach" {
		t.Errorf("Database = %+v, want root@outreach", cfg.Database)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty for mysql", cfg.Database.Path)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: postgres\n", "database.driver"},
		{"bad window start", "window:\n  start: \"25:00\"\n", "window.start"},
		{"window reversed", "window:\n  start: \"18:00\"\n  end: \"09:00\"\n", "window.end must be after window.start"},
		{"bad cron", "scheduler:\n  daily_trigger: \"not a cron\"\n", "scheduler.daily_trigger"},
		{"negative batch", "scheduler:\n  batch_size: -1\n", "scheduler.batch_size"},
		{"slack without token", "notify:\n  slack:\n    enabled: true\n", "notify.slack"},
		{"discord without channel", "notify:\n  discord:\n    enabled: true\n    bot_token: x\n", "notify.discord"},
		{"bad slug", "tenants:\n  - slug: \"Bad Slug\"\n", "tenants[0].slug"},
		{"duplicate slug", "tenants:\n  - slug: a\n  - slug: a\n", "duplicated"},
		{"negative limit", "tenants:\n  - slug: a\n    daily_limit: -3\n", "tenants[0].daily_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: oracle\nscheduler:\n  daily_trigger: bogus\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "database.driver") || !strings.Contains(msg, "scheduler.daily_trigger") {
		t.Errorf("error should list both violations: %q", msg)
	}
	if !strings.HasPrefix(msg, "config: validation failed:") {
		t.Errorf("error prefix = %q", msg)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("tenants: [unterminated"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outreach.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("Dashboard.Port = %d, want 9090", cfg.Dashboard.Port)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/outreach.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 9 * time.Hour, false},
		{"23:59", 23*time.Hour + 59*time.Minute, false},
		{"12:30:15", 12*time.Hour + 30*time.Minute + 15*time.Second, false},
		{" 07:05 ", 7*time.Hour + 5*time.Minute, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlugPattern(t *testing.T) {
	valid := []string{"acme", "acme-2", "a_b", "0day"}
	invalid := []string{"", "Acme", "-acme", "acme corp", "acme/../x"}
	for _, s := range valid {
		if !SlugPattern.MatchString(s) {
			t.Errorf("SlugPattern rejects %q", s)
		}
	}
	for _, s := range invalid {
		if SlugPattern.MatchString(s) {
			t.Errorf("SlugPattern accepts %q", s)
		}
	}
}
