package rates

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"kursbot/pkg/logx"
)

// Service runs the periodic cache refresh on a cron "@every" schedule.
type Service struct {
	mu sync.Mutex

	cache    *Cache
	log      logx.Logger
	interval time.Duration

	c       *cron.Cron
	entryID cron.EntryID
}

func NewService(cache *Cache, interval time.Duration, log logx.Logger) *Service {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Service{cache: cache, log: log, interval: interval}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	s.c = cron.New()
	id, err := s.c.AddFunc("@every "+s.interval.String(), func() {
		rctx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		_ = s.cache.Refresh(rctx)
	})
	if err != nil {
		s.c = nil
		return err
	}
	s.entryID = id
	s.c.Start()
	s.log.Info("rate refresh scheduled", logx.Duration("every", s.interval))

	// Prime the cache so the first user doesn't wait for the first tick.
	go s.cache.EnsureFresh(ctx)
	return nil
}

// Apply reschedules the refresh job when the interval changed.
func (s *Service) Apply(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval == s.interval {
		return
	}
	s.interval = interval
	if s.c == nil {
		return
	}
	s.c.Remove(s.entryID)
	id, err := s.c.AddFunc("@every "+interval.String(), func() {
		rctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		_ = s.cache.Refresh(rctx)
	})
	if err != nil {
		s.log.Error("reschedule rate refresh failed", logx.Err(err))
		return
	}
	s.entryID = id
	s.log.Info("rate refresh rescheduled", logx.Duration("every", interval))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	s.log.Info("rate refresh stopped")
}
