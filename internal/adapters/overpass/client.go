// internal/adapters/overpass/client.go
package overpass

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

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

const (
	DefaultRetries = 3
	DefaultBackoff = 3 * time.Second
)

type Client struct {
	endpoint string
	hc       *http.Client
	retries  int
	backoff  time.Duration // wait after failed attempt i is (i+1)*backoff
}

func New(endpoint string, retries int, backoff time.Duration) *Client {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 30 * time.Second},
		retries:  retries,
		backoff:  backoff,
	}
}

// HotelQuery selects every tourism=hotel node, way and relation inside bb.
// Ways and relations are reduced to their center point.
func HotelQuery(bb domain.BoundingBox) string {
	box := fmt.Sprintf("%s,%s,%s,%s", ff(bb.South), ff(bb.West), ff(bb.North), ff(bb.East))
	return "[out:json][timeout:25];(" +
		`node["tourism"="hotel"](` + box + ");" +
		`way["tourism"="hotel"](` + box + ");" +
		`relation["tourism"="hotel"](` + box + ");" +
		");out center;"
}

func ff(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// HotelsIn runs HotelQuery(bb) through Query.
func (c *Client) HotelsIn(ctx context.Context, bb domain.BoundingBox) ([]domain.POI, error) {
	return c.Query(ctx, HotelQuery(bb))
}

// Query runs q with a fixed retry budget. Any failure is retried after a
// linear delay; when the budget is spent Query returns (nil, nil).
// Cancelling ctx aborts the current attempt and all remaining ones.
func (c *Client) Query(ctx context.Context, q string) ([]domain.POI, error) {
	for i := 0; i < c.retries; i++ {
		pois, err := c.post(ctx, q)
		if err == nil {
			return pois, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("budget", c.retries).Msg("overpass query failed")
		if i == c.retries-1 {
			break
		}
		if !sleepCtx(ctx, time.Duration(i+1)*c.backoff) {
			return nil, ctx.Err()
		}
	}
	observability.ObserveFallback("overpass")
	return nil, nil
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string   `json:"type"`
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

func (c *Client) post(ctx context.Context, q string) ([]domain.POI, error) {
	form := url.Values{}
	form.Set("data", q)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "staybook/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(ctx, "overpass", "interpreter", 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal(ctx, "overpass", "interpreter", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("overpass: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("overpass: decode: %w", err)
	}

	pois := make([]domain.POI, 0, len(out.Elements))
	for _, el := range out.Elements {
		p := domain.POI{ID: fmt.Sprintf("%s/%d", el.Type, el.ID), Lat: el.Lat, Lon: el.Lon, Tags: el.Tags}
		if (p.Lat == nil || p.Lon == nil) && el.Center != nil {
			lat, lon := el.Center.Lat, el.Center.Lon
			p.Lat, p.Lon = &lat, &lon
		}
		pois = append(pois, p)
	}
	return pois, nil
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
