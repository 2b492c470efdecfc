// Package bot is the conversational handler: it resolves incoming messages
// to typed intents, drives the per-user state machine and replies through
// the transport. Updates are consumed from a single channel, so each user's
// messages are handled in arrival order.
package bot

import (
	"context"
	"errors"
	"fmt"
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

// Sender is the transport capability used for replies.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// WeatherSource provides forecasts for the one-shot flow.
type WeatherSource interface {
	Configured() bool
	Forecast(ctx context.Context, lat, lon float64) (weather.Forecast, error)
}

type Config struct {
	LocalCurrency string
	WeatherDays   int
	Loc           *time.Location
	SendTimeout   time.Duration
}

type Handler struct {
	cfg      Config
	sender   Sender
	sessions *session.Store
	windows  *window.Manager
	cache    *rates.Cache
	forecast WeatherSource
	reg      *registry.Registry
	log      logx.Logger
}

func NewHandler(cfg Config, sender Sender, sessions *session.Store, windows *window.Manager,
	cache *rates.Cache, forecast WeatherSource, reg *registry.Registry, log logx.Logger) *Handler {
	if cfg.LocalCurrency == "" {
		cfg.LocalCurrency = "UZS"
	}
	if cfg.WeatherDays <= 0 {
		cfg.WeatherDays = 3
	}
	if cfg.Loc == nil {
		cfg.Loc = time.Local
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Handler{
		cfg:      cfg,
		sender:   sender,
		sessions: sessions,
		windows:  windows,
		cache:    cache,
		forecast: forecast,
		reg:      reg,
		log:      log,
	}
}

// Run consumes updates until ctx is done or the channel closes.
func (h *Handler) Run(ctx context.Context, updates <-chan transport.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return errors.New("bot: update channel closed")
			}
			if up.Message != nil {
				h.Handle(ctx, up.Message)
			}
		}
	}
}

// Handle processes one incoming message.
func (h *Handler) Handle(ctx context.Context, m *transport.Message) {
	// The user's own message joins the window so old traffic gets cleaned up.
	h.windows.Record(ctx, m.ChatID, m.ID)

	if m.Location != nil {
		h.handleLocation(ctx, m)
		return
	}

	if intent, ok := ResolveIntent(m.Text); ok {
		h.handleIntent(ctx, m, intent)
		return
	}

	switch st := h.sessions.Get(m.FromID); st.Kind {
	case session.KindAwaitAmount:
		h.handleAmount(ctx, m, st)
	case session.KindAwaitLocation:
		h.reply(ctx, m.ChatID, replyAwaitingLocation, nil)
	default:
		h.reply(ctx, m.ChatID, replyDefault, menuOptions())
	}
}

func (h *Handler) handleIntent(ctx context.Context, m *transport.Message, intent Intent) {
	user := m.FromID
	// A menu tap abandons whatever flow was pending, whatever its type.
	h.sessions.End(user)

	switch intent.Kind {
	case IntentStart:
		h.reply(ctx, m.ChatID, replyGreeting, menuOptions())

	case IntentHelp:
		h.reply(ctx, m.ChatID, replyHelp, nil)

	case IntentShowRate:
		h.cache.EnsureFresh(ctx)
		h.reply(ctx, m.ChatID, h.rateText(), nil)

	case IntentConvert:
		h.sessions.Begin(user, session.AwaitAmount(intent.Direction))
		h.reply(ctx, m.ChatID, replyAskAmount, nil)

	case IntentWeatherNow:
		if !h.forecast.Configured() {
			h.reply(ctx, m.ChatID, replyWeatherNotSet, nil)
			return
		}
		h.sessions.Begin(user, session.AwaitLocation(session.PurposeOneShot))
		h.reply(ctx, m.ChatID, replyAskLocation, locationOptions())

	case IntentToggleCurrencyDigest:
		subscribed, err := h.reg.ToggleCurrency(ctx, user)
		if err != nil {
			h.reply(ctx, m.ChatID, replySubscriptionFailed, nil)
			return
		}
		if subscribed {
			h.reply(ctx, m.ChatID, replyDigestOn, nil)
		} else {
			h.reply(ctx, m.ChatID, replyDigestOff, nil)
		}

	case IntentSubscribeWeather:
		if !h.forecast.Configured() {
			h.reply(ctx, m.ChatID, replyWeatherNotSet, nil)
			return
		}
		h.sessions.Begin(user, session.AwaitLocation(session.PurposeSubscribe))
		h.reply(ctx, m.ChatID, replyAskLocation, locationOptions())

	case IntentUnsubscribeWeather:
		if err := h.reg.UnsubscribeWeather(ctx, user); err != nil {
			h.reply(ctx, m.ChatID, replySubscriptionFailed, nil)
			return
		}
		h.reply(ctx, m.ChatID, replyWeatherUnsub, nil)

	case IntentCancel:
		h.reply(ctx, m.ChatID, replyCancelled, menuOptions())
	}
}

func (h *Handler) handleAmount(ctx context.Context, m *transport.Message, st session.State) {
	amount, err := session.ParseAmount(m.Text)
	if err != nil {
		// State stays so the user can retry.
		h.reply(ctx, m.ChatID, replyBadAmount, nil)
		return
	}

	h.cache.EnsureFresh(ctx)
	factor, ok := h.cache.Get(st.Direction.Foreign())
	if !ok {
		// No rate yet; keep the state, the user may retry once rates arrive.
		h.reply(ctx, m.ChatID, replyRateUnavailable, nil)
		return
	}

	var text string
	if st.Direction.ToLocal() {
		text = fmt.Sprintf("%.2f %s = %.2f %s", amount, st.Direction.Foreign(), amount*factor, h.cfg.LocalCurrency)
	} else {
		text = fmt.Sprintf("%.2f %s = %.2f %s", amount, h.cfg.LocalCurrency, amount/factor, st.Direction.Foreign())
	}
	h.sessions.End(m.FromID)
	h.reply(ctx, m.ChatID, text, nil)
}

func (h *Handler) handleLocation(ctx context.Context, m *transport.Message) {
	st := h.sessions.Get(m.FromID)
	if st.Kind != session.KindAwaitLocation {
		h.reply(ctx, m.ChatID, replyDefault, menuOptions())
		return
	}

	switch st.Purpose {
	case session.PurposeSubscribe:
		err := h.reg.SubscribeWeather(ctx, m.FromID, store.Coordinate{Lat: m.Location.Lat, Lon: m.Location.Lon})
		if err != nil {
			h.reply(ctx, m.ChatID, replySubscriptionFailed, nil)
			return
		}
		h.sessions.End(m.FromID)
		h.reply(ctx, m.ChatID, replyWeatherSubscribed, menuOptions())

	case session.PurposeOneShot:
		fctx, cancel := context.WithTimeout(ctx, h.cfg.SendTimeout)
		fc, err := h.forecast.Forecast(fctx, m.Location.Lat, m.Location.Lon)
		cancel()
		if err != nil {
			if errors.Is(err, weather.ErrNotConfigured) {
				h.reply(ctx, m.ChatID, replyWeatherNotSet, menuOptions())
			} else {
				h.log.Warn("one-shot forecast failed", logx.Int64("user", m.FromID), logx.Err(err))
				h.reply(ctx, m.ChatID, replyUpstreamApology, menuOptions())
			}
			h.sessions.End(m.FromID)
			return
		}
		days := weather.DailySummary(fc, h.cfg.WeatherDays, h.cfg.Loc)
		h.sessions.End(m.FromID)
		h.reply(ctx, m.ChatID, "🌤 Ob-havo:\n"+weather.FormatSummary(days, h.cfg.Loc), menuOptions())
	}
}

func (h *Handler) rateText() string {
	factors, _ := h.cache.Snapshot()
	if len(factors) == 0 {
		return replyRateUnavailable
	}
	text := ""
	for _, code := range []string{"USD", "EUR"} {
		if f, ok := factors[code]; ok {
			if text != "" {
				text += "\n"
			}
			text += fmt.Sprintf("1 %s = %.2f %s", code, f, h.cfg.LocalCurrency)
		}
	}
	if text == "" {
		return replyRateUnavailable
	}
	return text
}

// reply sends and records the outgoing message in the chat window.
func (h *Handler) reply(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) {
	sctx, cancel := context.WithTimeout(ctx, h.cfg.SendTimeout)
	defer cancel()
	ref, err := h.sender.SendText(sctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	if err != nil {
		h.log.Warn("reply failed", logx.Int64("chat", chatID), logx.Err(err))
		return
	}
	h.windows.Record(ctx, chatID, ref.MessageID)
}

func menuOptions() *transport.SendOptions {
	return &transport.SendOptions{ReplyKeyboard: menuRows()}
}

func locationOptions() *transport.SendOptions {
	return &transport.SendOptions{
		ReplyKeyboard:   [][]string{{labelCancel}},
		RequestLocation: labelShareLocation,
	}
}
