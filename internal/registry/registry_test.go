package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kursbot/internal/registry/store"
	"kursbot/pkg/logx"
)

func openTestStore(t *testing.T, dir string) store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Driver: "file", Path: filepath.Join(dir, "subs.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

// reload opens a second store on the same path and rebuilds a registry from
// it, proving the mutation hit disk before the call returned.
func reload(t *testing.T, dir string) *Registry {
	t.Helper()
	r := New(openTestStore(t, dir), logx.Nop())
	r.Load(context.Background())
	return r
}

func TestCurrencySubscribePersistsBeforeReturn(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := New(openTestStore(t, dir), logx.Nop())

	if err := r.SubscribeCurrency(ctx, 42); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !reload(t, dir).IsCurrencySubscriber(42) {
		t.Fatal("subscription not durable")
	}

	if err := r.UnsubscribeCurrency(ctx, 42); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if reload(t, dir).IsCurrencySubscriber(42) {
		t.Fatal("unsubscription not durable")
	}
}

func TestCurrencySubscribeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := New(openTestStore(t, dir), logx.Nop())

	for i := 0; i < 3; i++ {
		if err := r.SubscribeCurrency(ctx, 7); err != nil {
			t.Fatalf("subscribe %d: %v", i, err)
		}
	}
	if got := r.CurrencySubscribers(); len(got) != 1 {
		t.Fatalf("duplicate memberships: %v", got)
	}
	// Unsubscribing an unknown user is a no-op, not an error.
	if err := r.UnsubscribeCurrency(ctx, 9999); err != nil {
		t.Fatalf("unsubscribe unknown: %v", err)
	}
}

func TestToggleCurrency(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := New(openTestStore(t, dir), logx.Nop())

	on, err := r.ToggleCurrency(ctx, 1)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	off, err := r.ToggleCurrency(ctx, 1)
	if err != nil || off {
		t.Fatalf("second toggle: on=%v err=%v", off, err)
	}
	if reload(t, dir).IsCurrencySubscriber(1) {
		t.Fatal("toggle-off not durable")
	}
}

func TestWeatherSubscribeOverwritesCoordinate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := New(openTestStore(t, dir), logx.Nop())

	if err := r.SubscribeWeather(ctx, 5, store.Coordinate{Lat: 1, Lon: 2}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := r.SubscribeWeather(ctx, 5, store.Coordinate{Lat: 41.3, Lon: 69.2}); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}

	subs := reload(t, dir).WeatherSubscribers()
	want := map[int64]store.Coordinate{5: {Lat: 41.3, Lon: 69.2}}
	if !reflect.DeepEqual(subs, want) {
		t.Fatalf("got %v, want %v", subs, want)
	}
}

func TestRemoveBatchPersistsOnce(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := New(openTestStore(t, dir), logx.Nop())

	for _, id := range []int64{1, 2, 3} {
		if err := r.SubscribeCurrency(ctx, id); err != nil {
			t.Fatalf("subscribe %d: %v", id, err)
		}
	}
	if err := r.SubscribeWeather(ctx, 2, store.Coordinate{Lat: 1, Lon: 1}); err != nil {
		t.Fatalf("subscribe weather: %v", err)
	}

	if err := r.RemoveBatch(ctx, []int64{1, 3}, []int64{2}); err != nil {
		t.Fatalf("remove batch: %v", err)
	}

	r2 := reload(t, dir)
	if got := r2.CurrencySubscribers(); !reflect.DeepEqual(got, []int64{2}) {
		t.Fatalf("currency after prune: %v", got)
	}
	if got := r2.WeatherSubscribers(); len(got) != 0 {
		t.Fatalf("weather after prune: %v", got)
	}
}

func TestRemoveBatchEmptyIsNoop(t *testing.T) {
	r := New(failingStore{}, logx.Nop())
	if err := r.RemoveBatch(context.Background(), nil, nil); err != nil {
		t.Fatalf("empty batch must not touch the store: %v", err)
	}
}

func TestLoadToleratesMissingAndCorruptStore(t *testing.T) {
	dir := t.TempDir()
	r := New(openTestStore(t, dir), logx.Nop())
	r.Load(context.Background())
	if got := r.CurrencySubscribers(); len(got) != 0 {
		t.Fatalf("missing file should mean empty registry: %v", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "subs.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	r = New(openTestStore(t, dir), logx.Nop())
	r.Load(context.Background())
	if got := r.CurrencySubscribers(); len(got) != 0 {
		t.Fatalf("corrupt file should mean empty registry: %v", got)
	}
}

func TestMutationSurfacesPersistError(t *testing.T) {
	r := New(failingStore{}, logx.Nop())
	if err := r.SubscribeCurrency(context.Background(), 1); err == nil {
		t.Fatal("expected persist error to propagate")
	}
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, snap store.Snapshot) error {
	return errors.New("disk full")
}
func (failingStore) Load(ctx context.Context) (store.Snapshot, error) {
	return store.Snapshot{}, errors.New("disk full")
}
func (failingStore) Close() error { return nil }
