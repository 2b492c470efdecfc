package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client queries an er-api style provider: GET <base>/<LOCAL> returns the
// factors from the local currency to everything else. The cache wants the
// opposite direction (local units per one foreign unit), so each factor is
// inverted on ingest.
type Client struct {
	baseURL string
	local   string
	want    []string
	http    *http.Client
}

type apiResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

func NewClient(baseURL, localCurrency string, currencies []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		local:   strings.ToUpper(localCurrency),
		want:    currencies,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Fetch(ctx context.Context) (map[string]float64, error) {
	url := c.baseURL + "/" + c.local
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates: fetch %s: %w", c.local, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("rates: provider returned http %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("rates: decode response: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("rates: provider result %q", body.Result)
	}

	out := make(map[string]float64, len(c.want))
	for _, code := range c.want {
		code = strings.ToUpper(code)
		raw, ok := body.Rates[code]
		if !ok || raw <= 0 {
			return nil, fmt.Errorf("rates: provider has no usable factor for %s", code)
		}
		// Provider factor is local->foreign; store local units per foreign unit.
		out[code] = 1 / raw
	}
	return out, nil
}
