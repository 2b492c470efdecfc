package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"kursbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend: one JSON document,
// rewritten atomically (tmp + rename) on every Save.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	if filepath.Ext(path) == "" {
		path += ".json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Save(ctx context.Context, snap Snapshot) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Currency == nil {
		snap.Currency = []int64{}
	}
	if snap.Weather == nil {
		snap.Weather = map[int64]Coordinate{}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Load(ctx context.Context) (Snapshot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return Snapshot{}, err
	}
	if snap.Weather == nil {
		snap.Weather = map[int64]Coordinate{}
	}
	return snap, nil
}
