// Package digest delivers the daily currency and weather broadcasts.
//
// The trigger is a coarse wall-clock guard: the loop polls on a short
// interval, fires when the local time matches the configured hour/minute,
// then holds a cooldown so the same minute cannot fire twice. A missed poll
// within the target minute is retried by the next poll; a full day is never
// skipped because the loop runs for the life of the process.
package digest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"kursbot/internal/registry"
	"kursbot/internal/transport"
	"kursbot/internal/weather"
	"kursbot/pkg/logx"
)

// Sender is the one transport capability the scheduler needs.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// RateSource provides the cached conversion factors.
type RateSource interface {
	Snapshot() (map[string]float64, time.Time)
}

// ForecastSource provides per-coordinate forecasts.
type ForecastSource interface {
	Forecast(ctx context.Context, lat, lon float64) (weather.Forecast, error)
}

type Config struct {
	Hour   int
	Minute int
	Loc    *time.Location

	Poll        time.Duration // wall-clock check interval; default 60s
	Cooldown    time.Duration // re-fire suppression after a pass; default 1h
	RatePerSec  int           // delivery pacing; default 4
	SendTimeout time.Duration // per-recipient bound; default 10s

	LocalCurrency string // display code for the rate digest
	WeatherDays   int    // calendar days in the weather summary
}

func (c *Config) defaults() {
	if c.Loc == nil {
		c.Loc = time.Local
	}
	if c.Poll <= 0 {
		c.Poll = 60 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = time.Hour
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 4
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.LocalCurrency == "" {
		c.LocalCurrency = "UZS"
	}
	if c.WeatherDays <= 0 {
		c.WeatherDays = 3
	}
}

type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	reg      *registry.Registry
	rates    RateSource
	forecast ForecastSource
	sender   Sender
	log      logx.Logger

	limiter *rate.Limiter

	// guarded by the run loop only
	lastFired time.Time
}

func New(cfg Config, reg *registry.Registry, rs RateSource, fs ForecastSource, sender Sender, log logx.Logger) *Scheduler {
	cfg.defaults()
	return &Scheduler{
		cfg:      cfg,
		reg:      reg,
		rates:    rs,
		forecast: fs,
		sender:   sender,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Apply updates the hot-reloadable knobs (target time and pacing). The poll
// interval and timezone stay fixed for the life of the loop.
func (s *Scheduler) Apply(hour, minute, ratePerSec int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hour >= 0 && hour <= 23 {
		s.cfg.Hour = hour
	}
	if minute >= 0 && minute <= 59 {
		s.cfg.Minute = minute
	}
	if ratePerSec > 0 && ratePerSec != s.cfg.RatePerSec {
		s.cfg.RatePerSec = ratePerSec
		s.limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
}

func (s *Scheduler) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Scheduler) pace(ctx context.Context) error {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	return lim.Wait(ctx)
}

// Run polls the wall clock until ctx is done. Intended to be driven by the
// supervisor's restart wrapper so a panicking pass does not end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	cfg := s.config()
	s.log.Info("daily digest armed",
		logx.Int("hour", cfg.Hour), logx.Int("minute", cfg.Minute),
		logx.String("tz", cfg.Loc.String()))

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !s.shouldFire(now) {
				continue
			}
			// Cooldown starts at the beginning of the pass so a slow pass
			// cannot re-match the same minute.
			s.lastFired = now
			s.runPass(ctx)
		}
	}
}

// shouldFire reports a minute-exact match outside the cooldown window.
func (s *Scheduler) shouldFire(now time.Time) bool {
	cfg := s.config()
	local := now.In(cfg.Loc)
	if local.Hour() != cfg.Hour || local.Minute() != cfg.Minute {
		return false
	}
	return s.lastFired.IsZero() || now.Sub(s.lastFired) >= cfg.Cooldown
}

// runPass delivers both digests and prunes recipients whose delivery failed
// at the transport level. Upstream fetch failures only skip the recipient.
func (s *Scheduler) runPass(ctx context.Context) {
	started := time.Now()
	var pruneCurrency, pruneWeather []int64

	sent := s.sendCurrencyDigest(ctx, &pruneCurrency)
	wsent := s.sendWeatherDigest(ctx, &pruneWeather)

	if len(pruneCurrency) > 0 || len(pruneWeather) > 0 {
		if err := s.reg.RemoveBatch(ctx, pruneCurrency, pruneWeather); err != nil {
			s.log.Error("pruned subscriber persist failed", logx.Err(err))
		} else {
			s.log.Info("unreachable subscribers pruned",
				logx.Int("currency", len(pruneCurrency)), logx.Int("weather", len(pruneWeather)))
		}
	}

	s.log.Info("digest pass finished",
		logx.Int("currency_sent", sent), logx.Int("weather_sent", wsent),
		logx.Duration("took", time.Since(started)))
}

func (s *Scheduler) sendCurrencyDigest(ctx context.Context, prune *[]int64) int {
	factors, fetchedAt := s.rates.Snapshot()
	if len(factors) == 0 {
		s.log.Warn("skipping currency digest, no rate ever fetched")
		return 0
	}
	text := FormatRateDigest(factors, s.config().LocalCurrency, fetchedAt)

	sent := 0
	for _, user := range s.reg.CurrencySubscribers() {
		if err := s.deliver(ctx, user, text); err != nil {
			if ctx.Err() != nil {
				return sent
			}
			s.log.Warn("currency digest undeliverable, marking for prune",
				logx.Int64("user", user), logx.Err(err))
			*prune = append(*prune, user)
			continue
		}
		sent++
	}
	return sent
}

func (s *Scheduler) sendWeatherDigest(ctx context.Context, prune *[]int64) int {
	subs := s.reg.WeatherSubscribers()
	if len(subs) == 0 {
		return 0
	}

	cfg := s.config()
	sent := 0
	for _, user := range sortedKeys(subs) {
		coord := subs[user]

		fctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		fc, err := s.forecast.Forecast(fctx, coord.Lat, coord.Lon)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return sent
			}
			// Upstream failure may be transient: skip today, keep the subscriber.
			s.log.Warn("weather fetch failed, skipping subscriber today",
				logx.Int64("user", user), logx.Err(err))
			continue
		}

		days := weather.DailySummary(fc, cfg.WeatherDays, cfg.Loc)
		text := FormatWeatherDigest(days, cfg.Loc)

		if err := s.deliver(ctx, user, text); err != nil {
			if ctx.Err() != nil {
				return sent
			}
			s.log.Warn("weather digest undeliverable, marking for prune",
				logx.Int64("user", user), logx.Err(err))
			*prune = append(*prune, user)
			continue
		}
		sent++
	}
	return sent
}

// deliver paces sends and bounds each one with its own timeout.
func (s *Scheduler) deliver(ctx context.Context, user int64, text string) error {
	if err := s.pace(ctx); err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, s.config().SendTimeout)
	defer cancel()
	_, err := s.sender.SendText(sctx, transport.ChatTarget{ChatID: user}, text, nil)
	return err
}
