package bot

import (
	"strings"

	"kursbot/internal/session"
)

// IntentKind is a recognized menu action. Raw label text is resolved to an
// intent here at the boundary; nothing past this file compares strings.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentStart
	IntentHelp
	IntentShowRate
	IntentConvert
	IntentWeatherNow
	IntentToggleCurrencyDigest
	IntentSubscribeWeather
	IntentUnsubscribeWeather
	IntentCancel
)

type Intent struct {
	Kind      IntentKind
	Direction session.Direction
}

// Menu labels shown on the reply keyboard. The originals are Uzbek; users tap
// buttons, so the exact strings double as the routing table.
const (
	labelShowRate      = "💵 Kursni ko‘rsat"
	labelUSDToUZS      = "🔄 USD → UZS"
	labelUZSToUSD      = "🔁 UZS → USD"
	labelEURToUZS      = "💶 EUR → UZS"
	labelUZSToEUR      = "💶 UZS → EUR"
	labelWeatherNow    = "🌤 Ob-havo"
	labelToggleDigest  = "🔔 Kurs obunasi yoqish/o‘chirish"
	labelSubWeather    = "🌦 Ob-havo obunasi"
	labelUnsubWeather  = "⛔ Ob-havo obunasini o‘chirish"
	labelHelp          = "ℹ️ Yordam"
	labelCancel        = "❌ Bekor qilish"
	labelShareLocation = "📍 Joylashuvni yuborish"
)

// ResolveIntent maps raw message text to a typed intent. Menu labels always
// win over any pending conversation state.
func ResolveIntent(text string) (Intent, bool) {
	switch strings.TrimSpace(text) {
	case "/start":
		return Intent{Kind: IntentStart}, true
	case "/help", labelHelp:
		return Intent{Kind: IntentHelp}, true
	case labelShowRate:
		return Intent{Kind: IntentShowRate}, true
	case labelUSDToUZS:
		return Intent{Kind: IntentConvert, Direction: session.USDToUZS}, true
	case labelUZSToUSD:
		return Intent{Kind: IntentConvert, Direction: session.UZSToUSD}, true
	case labelEURToUZS:
		return Intent{Kind: IntentConvert, Direction: session.EURToUZS}, true
	case labelUZSToEUR:
		return Intent{Kind: IntentConvert, Direction: session.UZSToEUR}, true
	case labelWeatherNow:
		return Intent{Kind: IntentWeatherNow}, true
	case labelToggleDigest:
		return Intent{Kind: IntentToggleCurrencyDigest}, true
	case labelSubWeather:
		return Intent{Kind: IntentSubscribeWeather}, true
	case labelUnsubWeather:
		return Intent{Kind: IntentUnsubscribeWeather}, true
	case labelCancel:
		return Intent{Kind: IntentCancel}, true
	}
	return Intent{}, false
}

func menuRows() [][]string {
	return [][]string{
		{labelShowRate},
		{labelUSDToUZS, labelUZSToUSD},
		{labelEURToUZS, labelUZSToEUR},
		{labelToggleDigest, labelWeatherNow},
		{labelSubWeather, labelUnsubWeather},
		{labelHelp},
	}
}
