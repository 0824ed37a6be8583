// internal/adapters/liteapi/client.go
package liteapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
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

const defaultRadiusM = 1000

type Client struct {
	base        string
	hc          *http.Client
	key         string
	rl          *rate.Limiter
	currency    string
	nationality string
}

type Options struct {
	Currency    string
	Nationality string
}

func New(base, key string, rps int, opt Options) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if opt.Currency == "" {
		opt.Currency = "USD"
	}
	if opt.Nationality == "" {
		opt.Nationality = "US"
	}
	return &Client{
		base:        strings.TrimRight(base, "/"),
		hc:          &http.Client{Timeout: 20 * time.Second},
		key:         key,
		rl:          rate.NewLimiter(rate.Limit(rps), rps),
		currency:    opt.Currency,
		nationality: opt.Nationality,
	}, nil
}

// ---- Public API ----

// Quote finds the property nearest to the coordinate and returns its
// cheapest offer for the stay. domain.ErrNoOffer when there is no property
// or no rate.
func (c *Client) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	h, err := c.nearestHotel(ctx, req.Lat, req.Lon, req.RadiusM)
	if err != nil {
		return domain.Quote{}, err
	}

	adults := req.Adults
	if adults <= 0 {
		adults = 2
	}
	body := ratesRequest{
		HotelIDs:         []string{h.ID},
		Checkin:          req.CheckIn.Format(domain.DateLayout),
		Checkout:         req.CheckOut.Format(domain.DateLayout),
		Currency:         c.currency,
		GuestNationality: c.nationality,
		Occupancies:      []occupancy{{Adults: adults}},
	}
	var rr ratesResponse
	if err := c.do(ctx, http.MethodPost, "rates", c.base+"/hotels/rates", body, &rr); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Quote{}, domain.ErrNoOffer
		}
		return domain.Quote{}, err
	}

	q := domain.Quote{
		HotelID:  h.ID,
		Name:     h.Name,
		Address:  h.Address,
		Lat:      h.Latitude,
		Lon:      h.Longitude,
		ImageURL: h.MainPhoto,
		Rating:   h.Rating,
	}
	found := false
	for _, hr := range rr.Data {
		for _, rt := range hr.RoomTypes {
			amt, cur := rt.OfferRetailRate.Amount, rt.OfferRetailRate.Currency
			if amt <= 0 {
				continue
			}
			if !found || amt < q.Price {
				q.Price, q.Currency = amt, cur
				if len(rt.Rates) > 0 {
					q.RoomType = rt.Rates[0].Name
				}
				found = true
			}
		}
	}
	if !found {
		return domain.Quote{}, domain.ErrNoOffer
	}
	q.Available = true
	if q.Currency == "" {
		q.Currency = c.currency
	}

	// amenities are a nice-to-have; a failed details call keeps the quote
	var det detailsResponse
	if err := c.do(ctx, http.MethodGet, "hotel", c.base+"/data/hotel?hotelId="+url.QueryEscape(h.ID), nil, &det); err == nil {
		q.Amenities = det.Data.HotelFacilities
	}
	return q, nil
}

type hotelSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	MainPhoto string   `json:"main_photo"`
	Rating    *float64 `json:"rating"`
}

type hotelsResponse struct {
	Data []hotelSummary `json:"data"`
}

type ratesRequest struct {
	HotelIDs         []string    `json:"hotelIds"`
	Checkin          string      `json:"checkin"`
	Checkout         string      `json:"checkout"`
	Currency         string      `json:"currency"`
	GuestNationality string      `json:"guestNationality"`
	Occupancies      []occupancy `json:"occupancies"`
}

type occupancy struct {
	Adults int `json:"adults"`
}

type ratesResponse struct {
	Data []struct {
		HotelID   string `json:"hotelId"`
		RoomTypes []struct {
			OfferRetailRate struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"offerRetailRate"`
			Rates []struct {
				Name string `json:"name"`
			} `json:"rates"`
		} `json:"roomTypes"`
	} `json:"data"`
}

type detailsResponse struct {
	Data struct {
		HotelFacilities []string `json:"hotelFacilities"`
	} `json:"data"`
}

func (c *Client) nearestHotel(ctx context.Context, lat, lon float64, radiusM int) (hotelSummary, error) {
	if radiusM <= 0 {
		radiusM = defaultRadiusM
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radiusM))
	q.Set("limit", "1")

	var out hotelsResponse
	if err := c.do(ctx, http.MethodGet, "hotels", c.base+"/data/hotels?"+q.Encode(), nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return hotelSummary{}, domain.ErrNoOffer
		}
		return hotelSummary{}, err
	}
	if len(out.Data) == 0 {
		return hotelSummary{}, domain.ErrNoOffer
	}
	return out.Data[0], nil
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("liteapi: not found")
	ErrUnauthorized = errors.New("liteapi: unauthorized")
	ErrForbidden    = errors.New("liteapi: forbidden")
)

// do sends one call with client-side rate limiting, retries and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) do(ctx context.Context, method, endpoint, u string, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// fresh request each attempt; the body reader is single use
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "staybook/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(ctx, "liteapi", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(ctx, "liteapi", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("liteapi: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("liteapi: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
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

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff is 200ms doubling per attempt plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
