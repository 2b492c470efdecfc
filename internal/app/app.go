// Package app assembles the services and owns their lifecycle: construction,
// startup order, config hot-reload fanout and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"kursbot/internal/bot"
	"kursbot/internal/config"
	"kursbot/internal/digest"
	"kursbot/internal/health"
	"kursbot/internal/rates"
	"kursbot/internal/registry"
	"kursbot/internal/registry/store"
	"kursbot/internal/runtime/supervisor"
	"kursbot/internal/session"
	"kursbot/internal/transport"
	"kursbot/internal/transport/telegram"
	"kursbot/internal/weather"
	"kursbot/internal/window"
	"kursbot/pkg/logx"
)

const updateBuffer = 64

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter  *telegram.Adapter
	st       store.Store
	reg      *registry.Registry
	cache    *rates.Cache
	ratesSvc *rates.Service
	sched    *digest.Scheduler
	handler  *bot.Handler
	health   *health.Server

	sup     *supervisor.Supervisor
	updates chan transport.Update
}

// New loads the config file and builds the full service graph. Nothing is
// started yet; Run does that.
func New(configPath string) (*App, error) {
	cfgMgr := config.NewManager(configPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.DurationOrDefault(cfg.Telegram.PollTimeout, 10*time.Second),
	}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	st, err := store.Open(store.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: config.DurationOrDefault(cfg.Store.BusyTimeout, 0),
	}, log.With(logx.String("svc", "store")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	reg := registry.New(st, log.With(logx.String("svc", "registry")))

	rateClient := rates.NewClient(
		cfg.Rates.BaseURL, cfg.Rates.LocalCurrency, cfg.Rates.Currencies,
		config.DurationOrDefault(cfg.Rates.HTTPTimeout, 10*time.Second))
	cache := rates.NewCache(rateClient, log.With(logx.String("svc", "rates")))
	ratesSvc := rates.NewService(cache,
		config.DurationOrDefault(cfg.Rates.RefreshInterval, 10*time.Minute),
		log.With(logx.String("svc", "rates")))

	forecast := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey,
		config.DurationOrDefault(cfg.Weather.HTTPTimeout, 10*time.Second))

	windows := window.NewManager(adapter, cfg.Window.Limit, log.With(logx.String("svc", "window")))
	sessions := session.NewStore()

	loc := cfg.Digest.Location()
	handler := bot.NewHandler(bot.Config{
		LocalCurrency: cfg.Rates.LocalCurrency,
		WeatherDays:   cfg.Weather.Days,
		Loc:           loc,
		SendTimeout:   config.DurationOrDefault(cfg.Digest.SendTimeout, 10*time.Second),
	}, adapter, sessions, windows, cache, forecast, reg, log.With(logx.String("svc", "bot")))

	sched := digest.New(digest.Config{
		Hour:          cfg.Digest.Hour,
		Minute:        cfg.Digest.Minute,
		Loc:           loc,
		Poll:          config.DurationOrDefault(cfg.Digest.PollInterval, 60*time.Second),
		Cooldown:      config.DurationOrDefault(cfg.Digest.Cooldown, time.Hour),
		RatePerSec:    cfg.Digest.RatePerSec,
		SendTimeout:   config.DurationOrDefault(cfg.Digest.SendTimeout, 10*time.Second),
		LocalCurrency: cfg.Rates.LocalCurrency,
		WeatherDays:   cfg.Weather.Days,
	}, reg, cache, forecast, adapter, log.With(logx.String("svc", "digest")))

	return &App{
		cfgMgr:   cfgMgr,
		logSvc:   logSvc,
		log:      log,
		adapter:  adapter,
		st:       st,
		reg:      reg,
		cache:    cache,
		ratesSvc: ratesSvc,
		sched:    sched,
		handler:  handler,
		health:   health.New(cfg.Health.Addr, log.With(logx.String("svc", "health"))),
		updates:  make(chan transport.Update, updateBuffer),
	}, nil
}

// Run starts everything and blocks until ctx is cancelled, then shuts down in
// reverse order.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx, a.log.With(logx.String("svc", "supervisor")))
	sctx := a.sup.Context()

	a.reg.Load(sctx)

	if err := a.ratesSvc.Start(sctx); err != nil {
		return fmt.Errorf("rates service: %w", err)
	}
	if err := a.health.Start(sctx); err != nil {
		return fmt.Errorf("health server: %w", err)
	}
	if err := a.adapter.Start(sctx, a.updates); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	a.sup.GoRestart("bot-handler", func(ctx context.Context) error {
		return a.handler.Run(ctx, a.updates)
	})
	a.sup.GoRestart("digest", a.sched.Run)
	a.sup.GoRestart("config-watch", a.cfgMgr.Watch)

	reloads := a.cfgMgr.Subscribe(1)
	a.sup.Go("config-apply", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cfg := <-reloads:
				a.applyConfig(cfg)
			}
		}
	})

	a.log.Info("started")
	<-ctx.Done()
	return a.shutdown()
}

// applyConfig pushes the hot-reloadable knobs into running services. Token,
// store driver and listen address changes need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})
	a.ratesSvc.Apply(config.DurationOrDefault(cfg.Rates.RefreshInterval, 10*time.Minute))
	a.sched.Apply(cfg.Digest.Hour, cfg.Digest.Minute, cfg.Digest.RatePerSec)
	a.log.Info("config reloaded")
}

func (a *App) shutdown() error {
	a.log.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = a.adapter.Stop(stopCtx)
	_ = a.sup.Stop(stopCtx)
	a.ratesSvc.Stop(stopCtx)
	a.health.Stop(stopCtx)
	if err := a.st.Close(); err != nil {
		a.log.Warn("store close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
