// Package store persists the subscriber registry.
//
// Two drivers, selected by config:
//   - "file": single JSON snapshot, atomic tmp+rename rewrite (default)
//   - "sqlite": SQLite database file
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"kursbot/pkg/logx"
)

// Coordinate is a weather subscriber's stored location.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Snapshot is the full durable registry record. It must round-trip
// losslessly across a Save/Load cycle.
type Snapshot struct {
	Currency []int64              `json:"currency_subscribers"`
	Weather  map[int64]Coordinate `json:"weather_subscribers"`
}

// Store is the persistence API used by the registry. Save rewrites the whole
// snapshot; registry mutations are persist-on-write, so sizes stay small.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}

type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
}
