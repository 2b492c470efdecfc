package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load reads, strictly decodes and validates the config file.
// Environment overrides ($BOT_TOKEN, $WEATHER_API_KEY, $PORT) are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	jb, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config decode (%s): %w", format, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("WEATHER_API_KEY")); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Health.Addr = ":" + v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Rates.BaseURL == "" {
		cfg.Rates.BaseURL = "https://open.er-api.com/v6/latest"
	}
	if cfg.Rates.LocalCurrency == "" {
		cfg.Rates.LocalCurrency = "UZS"
	}
	if len(cfg.Rates.Currencies) == 0 {
		cfg.Rates.Currencies = []string{"USD", "EUR"}
	}
	if cfg.Weather.BaseURL == "" {
		cfg.Weather.BaseURL = "https://api.openweathermap.org/data/2.5/forecast"
	}
	if cfg.Weather.Days <= 0 {
		cfg.Weather.Days = 3
	}
	if cfg.Digest.RatePerSec <= 0 {
		cfg.Digest.RatePerSec = 4
	}
	if cfg.Window.Limit <= 0 {
		cfg.Window.Limit = 5
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./kursbot_subscribers"
	}
	if cfg.Health.Addr == "" {
		cfg.Health.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required (or set $BOT_TOKEN)")
	}
	if cfg.Digest.Hour < 0 || cfg.Digest.Hour > 23 {
		return fmt.Errorf("digest.hour must be in 0..23, got %d", cfg.Digest.Hour)
	}
	if cfg.Digest.Minute < 0 || cfg.Digest.Minute > 59 {
		return fmt.Errorf("digest.minute must be in 0..59, got %d", cfg.Digest.Minute)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("store.driver %q is not supported", cfg.Store.Driver)
	}
	// Duration strings are validated eagerly so typos fail at startup, not at use.
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"rates.refresh_interval", cfg.Rates.RefreshInterval},
		{"rates.http_timeout", cfg.Rates.HTTPTimeout},
		{"weather.http_timeout", cfg.Weather.HTTPTimeout},
		{"digest.poll_interval", cfg.Digest.PollInterval},
		{"digest.cooldown", cfg.Digest.Cooldown},
		{"digest.send_timeout", cfg.Digest.SendTimeout},
		{"store.busy_timeout", cfg.Store.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if tz := strings.TrimSpace(cfg.Digest.Timezone); tz != "" {
		if _, err := loadLocation(tz); err != nil {
			return fmt.Errorf("digest.timezone: %w", err)
		}
	}
	return nil
}
