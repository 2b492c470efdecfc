package config

import (
	"fmt"
	"strings"
	"time"
)

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

// DurationOrDefault resolves a duration string, falling back to def when the
// field is empty, zero or unparseable. Invalid strings are already rejected
// at Load time.
func DurationOrDefault(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func loadLocation(tz string) (*time.Location, error) {
	return time.LoadLocation(tz)
}

// Location resolves the digest timezone, defaulting to the system local zone.
func (c DigestConfig) Location() *time.Location {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}
