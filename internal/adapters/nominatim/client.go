package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// Client talks to a Nominatim instance. It makes exactly one request per
// call; retry policy belongs to the caller.
type Client struct {
	base string
	ua   string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, userAgent string, rps int) *Client {
	if rps <= 0 {
		rps = 1
	}
	if userAgent == "" {
		userAgent = "staybook/1.0"
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		ua:   userAgent,
		hc:   &http.Client{Timeout: 30 * time.Second}, // backstop; per-attempt deadlines come from ctx
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// ReverseRaw returns the upstream status and body untouched. err is set
// only when no response was received.
func (c *Client) ReverseRaw(ctx context.Context, lat, lon string) (int, []byte, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", lat)
	q.Set("lon", lon)
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	resp, err := c.do(ctx, "reverse", c.base+"/reverse?"+q.Encode())
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
}

func (c *Client) Search(ctx context.Context, text string, limit int) ([]domain.Place, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", text)
	q.Set("limit", strconv.Itoa(limit))

	resp, err := c.do(ctx, "search", c.base+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nominatim search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rs []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, fmt.Errorf("nominatim search: decode: %w", err)
	}
	out := make([]domain.Place, 0, len(rs))
	for _, r := range rs {
		lat, err1 := strconv.ParseFloat(r.Lat, 64)
		lon, err2 := strconv.ParseFloat(r.Lon, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, domain.Place{Name: r.DisplayName, Lat: lat, Lon: lon, Type: r.Type})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint, u string) (*http.Response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// Nominatim's usage policy requires an identifying User-Agent
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(ctx, "nominatim", endpoint, 0, time.Since(start))
		return nil, err
	}
	observability.ObserveExternal(ctx, "nominatim", endpoint, resp.StatusCode, time.Since(start))
	return resp, nil
}
