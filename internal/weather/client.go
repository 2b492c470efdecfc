package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key is set. Callers turn this into
// a user-visible "not configured" reply instead of an apology for an outage.
var ErrNotConfigured = errors.New("weather: api key not configured")

// Interval is one forecast sample.
type Interval struct {
	At        time.Time
	TempC     float64
	Condition string
	WindMS    float64
}

// Forecast is the provider's time-ordered interval list.
type Forecast struct {
	Intervals []Interval
}

// Client queries an OpenWeather-style 5-day/3-hour forecast endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) Forecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	if !c.Configured() {
		return Forecast{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Forecast{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("weather: fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Forecast{}, fmt.Errorf("weather: provider returned http %d", resp.StatusCode)
	}

	var body struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
		} `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Forecast{}, fmt.Errorf("weather: decode response: %w", err)
	}
	if len(body.List) == 0 {
		return Forecast{}, errors.New("weather: provider returned empty forecast")
	}

	f := Forecast{Intervals: make([]Interval, 0, len(body.List))}
	for _, it := range body.List {
		cond := ""
		if len(it.Weather) > 0 {
			cond = it.Weather[0].Description
		}
		f.Intervals = append(f.Intervals, Interval{
			At:        time.Unix(it.Dt, 0),
			TempC:     it.Main.Temp,
			Condition: cond,
			WindMS:    it.Wind.Speed,
		})
	}
	return f, nil
}
