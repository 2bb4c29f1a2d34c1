package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Load reads, strictly decodes and validates the config at path.
// YAML files are coerced to JSON first so both formats share the strict
// decoder (DisallowUnknownFields).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func coerceToJSONBytes(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	v = normalizeYAML(v)

	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

// Validate checks required fields and duration syntax.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Raspyx.BaseURL) == "" {
		return errors.New("raspyx.base_url is required")
	}
	durations := []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"raspyx.timeout", c.Raspyx.Timeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"rate_limit.window", c.RateLimit.Window},
		{"rate_limit.ban_duration", c.RateLimit.BanDuration},
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	if t := c.Notify.DefaultTime; t != "" {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("notify.default_time: want HH:MM, got %q", t)
		}
	}
	if c.Compare.MaxPeriodDays < 0 {
		return errors.New("compare.max_period_days must be >= 0")
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ---- resolved accessors with defaults ----

func (c *Config) PollTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second)
	return d
}

func (c *Config) RaspyxTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("raspyx.timeout", c.Raspyx.Timeout, 30*time.Second)
	return d
}

func (c *Config) RateLimitWindow() time.Duration {
	d, _ := ParseDurationOrDefault("rate_limit.window", c.RateLimit.Window, time.Minute)
	return d
}

func (c *Config) BanDuration() time.Duration {
	d, _ := ParseDurationOrDefault("rate_limit.ban_duration", c.RateLimit.BanDuration, 5*time.Minute)
	return d
}

func (c *Config) RateLimitMessages() int {
	if c.RateLimit.Messages <= 0 {
		return 20
	}
	return c.RateLimit.Messages
}

func (c *Config) BroadcastRate() int {
	if c.Broadcast.RatePerSec <= 0 {
		return 20
	}
	return c.Broadcast.RatePerSec
}

func (c *Config) BroadcastRetryMax() int {
	if c.Broadcast.RetryMax <= 0 {
		return 2
	}
	return c.Broadcast.RetryMax
}

func (c *Config) NotifyDefaultTime() string {
	if c.Notify.DefaultTime == "" {
		return "08:00"
	}
	return c.Notify.DefaultTime
}

func (c *Config) NotifyTimezone() string {
	if c.Notify.Timezone == "" {
		return "Europe/Moscow"
	}
	return c.Notify.Timezone
}

func (c *Config) MetricsAddr() string {
	if c.Metrics.Addr == "" {
		return "127.0.0.1:9090"
	}
	return c.Metrics.Addr
}

func (c *Config) MaxPeriodDays() int {
	if c.Compare.MaxPeriodDays <= 0 {
		return 14
	}
	return c.Compare.MaxPeriodDays
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
