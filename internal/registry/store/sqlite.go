package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"kursbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS currency_subscribers (
	user_id INTEGER PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS weather_subscribers (
	user_id INTEGER PRIMARY KEY,
	lat REAL NOT NULL,
	lon REAL NOT NULL
);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for sqlite driver")
	}
	if filepath.Ext(path) == "" {
		path += ".db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save rewrites both tables in one transaction so a crash mid-save never
// leaves a half-updated registry.
func (s *sqliteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM currency_subscribers`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_subscribers`); err != nil {
		return err
	}
	for _, id := range snap.Currency {
		if _, err := tx.ExecContext(ctx, `INSERT INTO currency_subscribers(user_id) VALUES(?)`, id); err != nil {
			return err
		}
	}
	for id, c := range snap.Weather {
		if _, err := tx.ExecContext(ctx, `INSERT INTO weather_subscribers(user_id, lat, lon) VALUES(?,?,?)`, id, c.Lat, c.Lon); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Currency: []int64{}, Weather: map[int64]Coordinate{}}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM currency_subscribers`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return Snapshot{}, err
		}
		snap.Currency = append(snap.Currency, id)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	wrows, err := s.db.QueryContext(ctx, `SELECT user_id, lat, lon FROM weather_subscribers`)
	if err != nil {
		return Snapshot{}, err
	}
	defer wrows.Close()
	for wrows.Next() {
		var (
			id       int64
			lat, lon float64
		)
		if err := wrows.Scan(&id, &lat, &lon); err != nil {
			return Snapshot{}, err
		}
		snap.Weather[id] = Coordinate{Lat: lat, Lon: lon}
	}
	if err := wrows.Err(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
