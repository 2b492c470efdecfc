package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestForecastNotConfigured(t *testing.T) {
	c := NewClient("http://unused", "", time.Second)
	if c.Configured() {
		t.Fatal("empty key must report not configured")
	}
	if _, err := c.Forecast(context.Background(), 41.3, 69.2); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestForecastParsesProviderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "k" || q.Get("units") != "metric" {
			t.Errorf("missing query params: %v", q)
		}
		w.Write([]byte(`{"list":[
			{"dt":1700000000,"main":{"temp":21.4},"weather":[{"description":"scattered clouds"}],"wind":{"speed":3.4}},
			{"dt":1700010800,"main":{"temp":18.0},"weather":[],"wind":{"speed":1.1}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	fc, err := c.Forecast(context.Background(), 41.3, 69.2)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(fc.Intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(fc.Intervals))
	}
	first := fc.Intervals[0]
	if first.TempC != 21.4 || first.Condition != "scattered clouds" || first.WindMS != 3.4 {
		t.Fatalf("unexpected first interval: %+v", first)
	}
	if fc.Intervals[1].Condition != "" {
		t.Fatalf("missing weather description should stay empty, got %q", fc.Intervals[1].Condition)
	}
}

func TestDailySummaryPicksSampleClosestToMidday(t *testing.T) {
	loc := time.UTC
	day := func(d, hour int) time.Time {
		return time.Date(2026, 9, d, hour, 0, 0, 0, loc)
	}
	fc := Forecast{Intervals: []Interval{
		{At: day(1, 6), TempC: 10},
		{At: day(1, 12), TempC: 20},
		{At: day(1, 21), TempC: 15},
		{At: day(2, 9), TempC: 11},
		{At: day(2, 15), TempC: 22},
	}}

	got := DailySummary(fc, 3, loc)
	if len(got) != 2 {
		t.Fatalf("got %d days, want 2", len(got))
	}
	if got[0].TempC != 20 {
		t.Fatalf("day 1 picked %v, want the 12:00 sample", got[0])
	}
	// 09:00 and 15:00 are equidistant from midday; the earlier sample wins
	// because later ties do not replace it.
	if got[1].TempC != 11 {
		t.Fatalf("day 2 picked %v, want the 09:00 sample", got[1])
	}
}

func TestDailySummaryCapsDays(t *testing.T) {
	loc := time.UTC
	fc := Forecast{}
	for d := 1; d <= 5; d++ {
		fc.Intervals = append(fc.Intervals, Interval{At: time.Date(2026, 9, d, 12, 0, 0, 0, loc)})
	}
	if got := DailySummary(fc, 3, loc); len(got) != 3 {
		t.Fatalf("got %d days, want 3", len(got))
	}
}

func TestFormatSummary(t *testing.T) {
	loc := time.UTC
	days := []Interval{
		{At: time.Date(2026, 9, 1, 12, 0, 0, 0, loc), TempC: 21.4, Condition: "scattered clouds", WindMS: 3.4},
		{At: time.Date(2026, 9, 2, 12, 0, 0, 0, loc), TempC: 18.05, Condition: "rain", WindMS: 1},
	}
	got := FormatSummary(days, loc)
	want := "01.09: 21.4°C, scattered clouds, 3.4 m/s\n02.09: 18.1°C, rain, 1.0 m/s"
	if got != want {
		t.Fatalf("FormatSummary = %q, want %q", got, want)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected one line per day")
	}
}
