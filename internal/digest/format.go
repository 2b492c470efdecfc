package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"kursbot/internal/weather"
)

// FormatRateDigest renders the daily exchange-rate notification.
func FormatRateDigest(factors map[string]float64, local string, fetchedAt time.Time) string {
	codes := make([]string, 0, len(factors))
	for code := range factors {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString("🔔 Kunlik kurs:")
	for _, code := range codes {
		fmt.Fprintf(&b, "\n1 %s = %.2f %s", code, factors[code], local)
	}
	if !fetchedAt.IsZero() {
		fmt.Fprintf(&b, "\n(%s holatiga)", fetchedAt.Format("02.01.2006 15:04"))
	}
	return b.String()
}

// FormatWeatherDigest renders the multi-day forecast notification.
func FormatWeatherDigest(days []weather.Interval, loc *time.Location) string {
	return "🌤 Ob-havo prognozi:\n" + weather.FormatSummary(days, loc)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
