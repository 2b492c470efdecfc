package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kursbot/internal/rates"
	"kursbot/internal/registry"
	"kursbot/internal/registry/store"
	"kursbot/internal/session"
	"kursbot/internal/transport"
	"kursbot/internal/weather"
	"kursbot/internal/window"
	"kursbot/pkg/logx"
)

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	nextID int
	err    error
}

func (f *fakeSender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return transport.MessageRef{}, f.err
	}
	f.texts = append(f.texts, text)
	f.nextID++
	return transport.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeSender) DeleteMessage(ctx context.Context, ref transport.MessageRef) error { return nil }

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no reply was sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakeWeather struct {
	configured bool
	fc         weather.Forecast
	err        error
}

func (f *fakeWeather) Configured() bool { return f.configured }
func (f *fakeWeather) Forecast(ctx context.Context, lat, lon float64) (weather.Forecast, error) {
	if !f.configured {
		return weather.Forecast{}, weather.ErrNotConfigured
	}
	return f.fc, f.err
}

type memStore struct {
	mu   sync.Mutex
	snap store.Snapshot
}

func (m *memStore) Save(ctx context.Context, snap store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	return nil
}

func (m *memStore) Load(ctx context.Context) (store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) Close() error { return nil }

type staticRates struct {
	factors map[string]float64
}

func (s staticRates) Fetch(ctx context.Context) (map[string]float64, error) {
	if s.factors == nil {
		return nil, errors.New("provider down")
	}
	return s.factors, nil
}

type fixture struct {
	h        *Handler
	sender   *fakeSender
	sessions *session.Store
	reg      *registry.Registry
}

func newFixture(t *testing.T, factors map[string]float64, w *fakeWeather) *fixture {
	t.Helper()
	sender := &fakeSender{}
	sessions := session.NewStore()
	windows := window.NewManager(sender, 5, logx.Nop())
	cache := rates.NewCache(staticRates{factors: factors}, logx.Nop())
	reg := registry.New(&memStore{}, logx.Nop())
	if w == nil {
		w = &fakeWeather{}
	}
	h := NewHandler(Config{
		LocalCurrency: "UZS",
		WeatherDays:   3,
		Loc:           time.UTC,
		SendTimeout:   time.Second,
	}, sender, sessions, windows, cache, w, reg, logx.Nop())
	return &fixture{h: h, sender: sender, sessions: sessions, reg: reg}
}

func msg(user int64, text string) *transport.Message {
	return &transport.Message{ID: 1, ChatID: user, FromID: user, Text: text}
}

func TestConvertForeignToLocal(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700, "EUR": 13600}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUSDToUZS))
	if got := fx.sender.last(t); got != replyAskAmount {
		t.Fatalf("expected amount prompt, got %q", got)
	}

	fx.h.Handle(ctx, msg(1, "10"))
	if got := fx.sender.last(t); got != "10.00 USD = 127000.00 UZS" {
		t.Fatalf("conversion reply = %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("state not cleared after conversion: %+v", st)
	}
}

func TestConvertLocalToForeign(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700, "EUR": 13600}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUZSToUSD))
	fx.h.Handle(ctx, msg(1, "127000"))
	if got := fx.sender.last(t); got != "127000.00 UZS = 10.00 USD" {
		t.Fatalf("conversion reply = %q", got)
	}
}

func TestConvertAcceptsDecimalComma(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700, "EUR": 13600}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelEURToUZS))
	fx.h.Handle(ctx, msg(1, "1,5"))
	if got := fx.sender.last(t); got != "1.50 EUR = 20400.00 UZS" {
		t.Fatalf("conversion reply = %q", got)
	}
}

func TestBadAmountKeepsState(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUSDToUZS))
	fx.h.Handle(ctx, msg(1, "ten dollars"))
	if got := fx.sender.last(t); got != replyBadAmount {
		t.Fatalf("expected retry prompt, got %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindAwaitAmount {
		t.Fatalf("state lost on parse failure: %+v", st)
	}

	// Retry succeeds without re-selecting the menu item.
	fx.h.Handle(ctx, msg(1, "10"))
	if got := fx.sender.last(t); got != "10.00 USD = 127000.00 UZS" {
		t.Fatalf("retry reply = %q", got)
	}
}

func TestRateUnavailableKeepsState(t *testing.T) {
	fx := newFixture(t, nil, nil) // fetcher always fails
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUSDToUZS))
	fx.h.Handle(ctx, msg(1, "10"))
	if got := fx.sender.last(t); got != replyRateUnavailable {
		t.Fatalf("expected unavailable reply, got %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindAwaitAmount {
		t.Fatalf("state lost when rate missing: %+v", st)
	}
}

func TestMenuIntentOverridesPendingState(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700, "EUR": 13600}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUSDToUZS))
	// A menu tap mid-flow is handled as an intent, never parsed as an amount,
	// and abandons the pending flow.
	fx.h.Handle(ctx, msg(1, labelShowRate))
	if got := fx.sender.last(t); got == replyBadAmount {
		t.Fatalf("menu label treated as amount input")
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("pending flow survived a menu tap: %+v", st)
	}

	// Selecting another conversion replaces the pending direction.
	fx.h.Handle(ctx, msg(1, labelEURToUZS))
	fx.h.Handle(ctx, msg(1, "2"))
	if got := fx.sender.last(t); got != "2.00 EUR = 27200.00 UZS" {
		t.Fatalf("conversion after redirect = %q", got)
	}
}

func TestCancelClearsState(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelUSDToUZS))
	fx.h.Handle(ctx, msg(1, labelCancel))
	if got := fx.sender.last(t); got != replyCancelled {
		t.Fatalf("expected cancel reply, got %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("cancel left state: %+v", st)
	}
}

func TestShowRateListsAllCurrencies(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700, "EUR": 13600}, nil)
	fx.h.Handle(context.Background(), msg(1, labelShowRate))
	want := "1 USD = 12700.00 UZS\n1 EUR = 13600.00 UZS"
	if got := fx.sender.last(t); got != want {
		t.Fatalf("rate text = %q, want %q", got, want)
	}
}

func TestToggleDigest(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, nil)
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelToggleDigest))
	if got := fx.sender.last(t); got != replyDigestOn {
		t.Fatalf("first toggle reply = %q", got)
	}
	if !fx.reg.IsCurrencySubscriber(1) {
		t.Fatal("toggle did not subscribe")
	}

	fx.h.Handle(ctx, msg(1, labelToggleDigest))
	if got := fx.sender.last(t); got != replyDigestOff {
		t.Fatalf("second toggle reply = %q", got)
	}
	if fx.reg.IsCurrencySubscriber(1) {
		t.Fatal("toggle did not unsubscribe")
	}
}

func TestWeatherNotConfigured(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, &fakeWeather{configured: false})
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelWeatherNow))
	if got := fx.sender.last(t); got != replyWeatherNotSet {
		t.Fatalf("expected not-configured reply, got %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("state started despite missing key: %+v", st)
	}
}

func TestWeatherSubscribeFlow(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, &fakeWeather{configured: true})
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelSubWeather))
	if got := fx.sender.last(t); got != replyAskLocation {
		t.Fatalf("expected location prompt, got %q", got)
	}

	loc := &transport.Message{ID: 2, ChatID: 1, FromID: 1, Location: &transport.Location{Lat: 41.3, Lon: 69.2}}
	fx.h.Handle(ctx, loc)
	if got := fx.sender.last(t); got != replyWeatherSubscribed {
		t.Fatalf("expected subscribed reply, got %q", got)
	}

	subs := fx.reg.WeatherSubscribers()
	if c, ok := subs[1]; !ok || c != (store.Coordinate{Lat: 41.3, Lon: 69.2}) {
		t.Fatalf("coordinate not stored: %v", subs)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("state not cleared after subscribe: %+v", st)
	}
}

func TestOneShotWeatherFlow(t *testing.T) {
	fc := weather.Forecast{Intervals: []weather.Interval{
		{At: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), TempC: 21.4, Condition: "clear sky", WindMS: 2},
	}}
	fx := newFixture(t, map[string]float64{"USD": 12700}, &fakeWeather{configured: true, fc: fc})
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelWeatherNow))
	loc := &transport.Message{ID: 2, ChatID: 1, FromID: 1, Location: &transport.Location{Lat: 41.3, Lon: 69.2}}
	fx.h.Handle(ctx, loc)

	want := "🌤 Ob-havo:\n01.09: 21.4°C, clear sky, 2.0 m/s"
	if got := fx.sender.last(t); got != want {
		t.Fatalf("one-shot reply = %q, want %q", got, want)
	}
}

func TestOneShotWeatherUpstreamFailure(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700},
		&fakeWeather{configured: true, err: errors.New("http 500")})
	ctx := context.Background()

	fx.h.Handle(ctx, msg(1, labelWeatherNow))
	loc := &transport.Message{ID: 2, ChatID: 1, FromID: 1, Location: &transport.Location{Lat: 1, Lon: 1}}
	fx.h.Handle(ctx, loc)

	if got := fx.sender.last(t); got != replyUpstreamApology {
		t.Fatalf("expected apology, got %q", got)
	}
	if st := fx.sessions.Get(1); st.Kind != session.KindNone {
		t.Fatalf("state not cleared after failed one-shot: %+v", st)
	}
}

func TestUnexpectedLocationFallsBackToMenu(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, &fakeWeather{configured: true})
	loc := &transport.Message{ID: 2, ChatID: 1, FromID: 1, Location: &transport.Location{Lat: 1, Lon: 1}}
	fx.h.Handle(context.Background(), loc)
	if got := fx.sender.last(t); got != replyDefault {
		t.Fatalf("expected menu fallback, got %q", got)
	}
}

func TestUnknownTextShowsMenu(t *testing.T) {
	fx := newFixture(t, map[string]float64{"USD": 12700}, nil)
	fx.h.Handle(context.Background(), msg(1, "hello there"))
	if got := fx.sender.last(t); got != replyDefault {
		t.Fatalf("expected default prompt, got %q", got)
	}
}
