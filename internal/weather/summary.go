package weather

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// middayMinute is the preferred sample time within a day (12:00).
const middayMinute = 12 * 60

// DailySummary reduces a forecast to one representative interval per calendar
// day: the sample closest to midday. At most days entries are returned, in
// chronological order.
func DailySummary(f Forecast, days int, loc *time.Location) []Interval {
	if loc == nil {
		loc = time.Local
	}
	if days <= 0 {
		days = 3
	}

	best := map[string]Interval{}
	for _, it := range f.Intervals {
		local := it.At.In(loc)
		day := local.Format("2006-01-02")
		cur, ok := best[day]
		if !ok || middayDistance(local) < middayDistance(cur.At.In(loc)) {
			best[day] = it
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > days {
		keys = keys[:days]
	}

	out := make([]Interval, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k])
	}
	return out
}

func middayDistance(t time.Time) int {
	d := t.Hour()*60 + t.Minute() - middayMinute
	if d < 0 {
		d = -d
	}
	return d
}

// FormatSummary renders the multi-day digest body, one line per day.
func FormatSummary(days []Interval, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	for i, d := range days {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %.1f°C, %s, %.1f m/s",
			d.At.In(loc).Format("02.01"), d.TempC, d.Condition, d.WindMS)
	}
	return b.String()
}
