// Package registry is the durable record of digest subscribers. Membership
// mutations are idempotent and persisted before they are considered
// authoritative for the next scheduler tick.
package registry

import (
	"context"
	"os"
	"sort"
	"sync"

	"kursbot/internal/registry/store"
	"kursbot/pkg/logx"
)

type Registry struct {
	st  store.Store
	log logx.Logger

	mu       sync.Mutex
	currency map[int64]struct{}
	weather  map[int64]store.Coordinate
}

func New(st store.Store, log logx.Logger) *Registry {
	return &Registry{
		st:       st,
		log:      log,
		currency: map[int64]struct{}{},
		weather:  map[int64]store.Coordinate{},
	}
}

// Load reads the durable snapshot. A missing, empty or corrupt store means
// "no subscribers yet" and never fails startup.
func (r *Registry) Load(ctx context.Context) {
	snap, err := r.st.Load(ctx)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("subscriber store unreadable, starting empty", logx.Err(err))
		}
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range snap.Currency {
		r.currency[id] = struct{}{}
	}
	for id, c := range snap.Weather {
		r.weather[id] = c
	}
	r.log.Info("subscribers loaded",
		logx.Int("currency", len(r.currency)), logx.Int("weather", len(r.weather)))
}

// SubscribeCurrency adds the user to the currency digest; subscribing twice
// is a no-op. Returns whether the user is now subscribed (toggle helpers use
// Toggle below).
func (r *Registry) SubscribeCurrency(ctx context.Context, user int64) error {
	r.mu.Lock()
	r.currency[user] = struct{}{}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return r.persist(ctx, snap)
}

func (r *Registry) UnsubscribeCurrency(ctx context.Context, user int64) error {
	r.mu.Lock()
	delete(r.currency, user)
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return r.persist(ctx, snap)
}

// ToggleCurrency flips membership and reports the new state.
func (r *Registry) ToggleCurrency(ctx context.Context, user int64) (subscribed bool, err error) {
	r.mu.Lock()
	if _, ok := r.currency[user]; ok {
		delete(r.currency, user)
		subscribed = false
	} else {
		r.currency[user] = struct{}{}
		subscribed = true
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return subscribed, r.persist(ctx, snap)
}

// SubscribeWeather inserts or overwrites the user's stored coordinate.
func (r *Registry) SubscribeWeather(ctx context.Context, user int64, coord store.Coordinate) error {
	r.mu.Lock()
	r.weather[user] = coord
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return r.persist(ctx, snap)
}

func (r *Registry) UnsubscribeWeather(ctx context.Context, user int64) error {
	r.mu.Lock()
	delete(r.weather, user)
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return r.persist(ctx, snap)
}

// IsCurrencySubscriber reports current membership.
func (r *Registry) IsCurrencySubscriber(user int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.currency[user]
	return ok
}

// CurrencySubscribers returns a sorted copy of the currency digest set.
func (r *Registry) CurrencySubscribers() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.currency))
	for id := range r.currency {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WeatherSubscribers returns a copy of the weather digest mapping.
func (r *Registry) WeatherSubscribers() map[int64]store.Coordinate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]store.Coordinate, len(r.weather))
	for id, c := range r.weather {
		out[id] = c
	}
	return out
}

// RemoveBatch drops pruned recipients from both sets and persists once.
// Used by the broadcast scheduler after a delivery pass.
func (r *Registry) RemoveBatch(ctx context.Context, currency, weather []int64) error {
	if len(currency) == 0 && len(weather) == 0 {
		return nil
	}
	r.mu.Lock()
	for _, id := range currency {
		delete(r.currency, id)
	}
	for _, id := range weather {
		delete(r.weather, id)
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()
	return r.persist(ctx, snap)
}

func (r *Registry) snapshotLocked() store.Snapshot {
	snap := store.Snapshot{
		Currency: make([]int64, 0, len(r.currency)),
		Weather:  make(map[int64]store.Coordinate, len(r.weather)),
	}
	for id := range r.currency {
		snap.Currency = append(snap.Currency, id)
	}
	sort.Slice(snap.Currency, func(i, j int) bool { return snap.Currency[i] < snap.Currency[j] })
	for id, c := range r.weather {
		snap.Weather[id] = c
	}
	return snap
}

func (r *Registry) persist(ctx context.Context, snap store.Snapshot) error {
	if err := r.st.Save(ctx, snap); err != nil {
		r.log.Error("subscriber store save failed", logx.Err(err))
		return err
	}
	return nil
}
