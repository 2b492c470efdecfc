package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Rates    RatesConfig    `json:"rates"`
	Weather  WeatherConfig  `json:"weather"`
	Digest   DigestConfig   `json:"digest"`
	Window   WindowConfig   `json:"window"`
	Store    StoreConfig    `json:"store"`
	Health   HealthConfig   `json:"health"`
}

type TelegramConfig struct {
	// Token may be left empty in the file and provided via $BOT_TOKEN.
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RatesConfig controls the exchange-rate cache.
//
// The provider is queried with the local currency as base, so every returned
// factor is "foreign units per one local unit" and gets inverted on ingest.
type RatesConfig struct {
	BaseURL       string   `json:"base_url,omitempty"`
	LocalCurrency string   `json:"local_currency,omitempty"`
	Currencies    []string `json:"currencies,omitempty"`
	// RefreshInterval is a Go duration string; default "10m".
	RefreshInterval string `json:"refresh_interval,omitempty"`
	// HTTPTimeout is a Go duration string; default "10s".
	HTTPTimeout string `json:"http_timeout,omitempty"`
}

type WeatherConfig struct {
	// APIKey may be left empty in the file and provided via $WEATHER_API_KEY.
	// With no key at all, weather features degrade to a "not configured" reply.
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	// Days is how many calendar days the digest summarises; default 3.
	Days int `json:"days,omitempty"`
	// HTTPTimeout is a Go duration string; default "10s".
	HTTPTimeout string `json:"http_timeout,omitempty"`
}

// DigestConfig controls the daily broadcast.
type DigestConfig struct {
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ; default local
	// PollInterval is how often the wall clock is checked; default "60s".
	PollInterval string `json:"poll_interval,omitempty"`
	// Cooldown suppresses re-firing after a pass; default "1h".
	Cooldown string `json:"cooldown,omitempty"`
	// RatePerSec paces deliveries to respect transport limits; default 4.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// SendTimeout bounds a single delivery; default "10s".
	SendTimeout string `json:"send_timeout,omitempty"`
}

type WindowConfig struct {
	// Limit is the per-chat message window cap; default 5.
	Limit int `json:"limit,omitempty"`
}

// StoreConfig selects the subscriber store backend.
//
// Driver values:
//   - "file": single JSON snapshot, atomic rewrite (default)
//   - "sqlite": SQLite database file
type StoreConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type HealthConfig struct {
	// Addr is the liveness listen address; ":$PORT" wins when $PORT is set.
	Addr string `json:"addr,omitempty"`
}
