package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"telegram": {"token": "123:abc", "admin_user_ids": [42]},
		"raspyx": {"base_url": "https://example.org/raspyx", "timeout": "5s"},
		"logging": {"level": "debug"},
		"compare": {"max_period_days": 7}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if !cfg.IsAdmin(42) || cfg.IsAdmin(43) {
		t.Fatalf("admin check broken")
	}
	if cfg.RaspyxTimeout() != 5*time.Second {
		t.Fatalf("raspyx timeout = %v", cfg.RaspyxTimeout())
	}
	if cfg.MaxPeriodDays() != 7 {
		t.Fatalf("max period days = %d", cfg.MaxPeriodDays())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
telegram:
  token: "123:abc"
raspyx:
  base_url: https://example.org/raspyx
notify:
  enabled: true
  default_time: "07:30"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Notify.Enabled || cfg.NotifyDefaultTime() != "07:30" {
		t.Fatalf("notify config lost: %+v", cfg.Notify)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"telegram": {"token": "t"},
		"raspyx": {"base_url": "u"},
		"surprise": true
	}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing token", `{"raspyx": {"base_url": "u"}}`},
		{"missing base url", `{"telegram": {"token": "t"}}`},
		{"bad duration", `{"telegram": {"token": "t", "poll_timeout": "soon"}, "raspyx": {"base_url": "u"}}`},
		{"bad notify time", `{"telegram": {"token": "t"}, "raspyx": {"base_url": "u"}, "notify": {"enabled": true, "default_time": "25:99"}}`},
	}
	for _, tc := range cases {
		path := writeTemp(t, "config.json", tc.body)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestDefaults(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"telegram": {"token": "t"},
		"raspyx": {"base_url": "u"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollTimeout() != 10*time.Second {
		t.Fatalf("poll timeout default = %v", cfg.PollTimeout())
	}
	if cfg.RateLimitMessages() != 20 || cfg.RateLimitWindow() != time.Minute || cfg.BanDuration() != 5*time.Minute {
		t.Fatalf("rate limit defaults broken")
	}
	if cfg.BroadcastRate() != 20 {
		t.Fatalf("broadcast rate default = %d", cfg.BroadcastRate())
	}
	if cfg.MaxPeriodDays() != 14 {
		t.Fatalf("max period default = %d", cfg.MaxPeriodDays())
	}
	if !cfg.Logging.ConsoleEnabled() {
		t.Fatalf("console should default on")
	}
}
