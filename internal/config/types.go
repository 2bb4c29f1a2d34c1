package config

// Config is the full bot configuration, loaded from JSON or YAML.
//
// All duration-ish fields are Go duration strings (e.g. "500ms", "30s", "5m")
// unless noted otherwise. Day bounds, bell-schedule variants and cache TTLs
// are compile-time constants and intentionally not configurable.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Raspyx    RaspyxConfig    `json:"raspyx"`
	Storage   StorageConfig   `json:"storage,omitempty"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
	Broadcast BroadcastConfig `json:"broadcast,omitempty"`
	Notify    NotifyConfig    `json:"notify,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	Compare   CompareConfig   `json:"compare,omitempty"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	AdminUserIDs []int64 `json:"admin_user_ids,omitempty"`
	PollTimeout  string  `json:"poll_timeout,omitempty"` // default "10s"
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"` // trace|debug|info|warn|error
	Console *bool  `json:"console,omitempty"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

// RaspyxConfig points at the upstream timetable API.
type RaspyxConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // do not log
	Timeout  string `json:"timeout,omitempty"`  // per-request, default "30s"
}

// StorageConfig controls the SQLite persistence layer.
// An empty path disables storage; features needing it degrade with a warning.
type StorageConfig struct {
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// RateLimitConfig is the per-user inbound flood guard.
type RateLimitConfig struct {
	Messages    int    `json:"messages,omitempty"`     // default 20
	Window      string `json:"window,omitempty"`       // default "1m"
	BanDuration string `json:"ban_duration,omitempty"` // default "5m"
}

type BroadcastConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"` // default 20
	RetryMax   int `json:"retry_max,omitempty"`    // default 2
}

type NotifyConfig struct {
	Enabled     bool   `json:"enabled"`
	DefaultTime string `json:"default_time,omitempty"` // "HH:MM", default "08:00"
	Timezone    string `json:"timezone,omitempty"`     // IANA TZ, default "Europe/Moscow"
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9090"
}

type CompareConfig struct {
	// MaxPeriodDays caps the span of /compareperiod requests. The engine
	// itself enforces no upper bound; this is caller policy.
	MaxPeriodDays int `json:"max_period_days,omitempty"` // default 14
}

func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}
