package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// FallbackLocality is the address given to hotels whose coordinates could
// not be reverse geocoded.
const FallbackLocality = "Batangas, Philippines"

type ReversePolicy struct {
	Attempts    int
	BaseTimeout time.Duration // attempt n gets BaseTimeout + n*TimeoutStep
	TimeoutStep time.Duration
	BackoffStep time.Duration // after a transport failure on attempt n, wait n*BackoffStep
	TTL         time.Duration
}

func DefaultReversePolicy() ReversePolicy {
	return ReversePolicy{
		Attempts:    3,
		BaseTimeout: 7 * time.Second,
		TimeoutStep: 2 * time.Second,
		BackoffStep: 500 * time.Millisecond,
		TTL:         24 * time.Hour,
	}
}

type ReverseService struct {
	geo    domain.ReverseGeocoder
	cache  domain.Cache
	policy ReversePolicy
}

func NewReverseService(g domain.ReverseGeocoder, c domain.Cache, p ReversePolicy) *ReverseService {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.TTL <= 0 {
		p.TTL = 24 * time.Hour
	}
	return &ReverseService{geo: g, cache: c, policy: p}
}

type fallbackPayload struct {
	Address  *string `json:"address"`
	Fallback bool    `json:"fallback"`
	Error    string  `json:"error"`
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("geocoder responded with status %d", e.code) }

// Reverse returns the geocoder JSON for lat/lon, from cache when fresh.
// After the retry budget it returns (and caches) a fallback payload; the
// only errors are validation and cancellation of ctx.
func (s *ReverseService) Reverse(ctx context.Context, lat, lon string) ([]byte, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		return nil, domain.ErrMissingCoordinates
	}
	if err := checkCoordinates(lat, lon); err != nil {
		return nil, err
	}
	ctx = observability.WithComponent(ctx, "reverse")

	key := "reverse:" + lat + "," + lon
	var cached json.RawMessage
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("reverse cache read failed")
	} else if ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.policy.Attempts; attempt++ {
		body, err := s.attempt(ctx, lat, lon, attempt)
		if err == nil {
			s.store(ctx, key, body)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("lat", lat).Str("lon", lon).Msg("reverse geocode attempt failed")

		var se *statusError
		if errors.As(err, &se) {
			continue
		}
		if attempt < s.policy.Attempts && !sleepCtx(ctx, time.Duration(attempt)*s.policy.BackoffStep) {
			return nil, ctx.Err()
		}
	}

	observability.ObserveFallback("reverse")
	body, err := json.Marshal(fallbackPayload{Fallback: true, Error: lastErr.Error()})
	if err != nil {
		return nil, err
	}
	// cached too, so a dead upstream is not hit again for this coordinate
	s.store(ctx, key, body)
	return body, nil
}

// Locality is the geocoding client used by the hotel search. It never
// fails; anything short of a usable address yields FallbackLocality.
func (s *ReverseService) Locality(ctx context.Context, lat, lon float64) string {
	body, err := s.Reverse(ctx, ff(lat), ff(lon))
	if err != nil {
		observability.ObserveFallback("locality")
		return FallbackLocality
	}
	if loc, ok := localityFrom(body); ok {
		return loc
	}
	observability.ObserveFallback("locality")
	return FallbackLocality
}

func (s *ReverseService) attempt(ctx context.Context, lat, lon string, attempt int) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, s.policy.BaseTimeout+time.Duration(attempt)*s.policy.TimeoutStep)
	defer cancel()

	status, body, err := s.geo.ReverseRaw(actx, lat, lon)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &statusError{code: status}
	}
	// Marshal compacts and validates; it is also exactly what the cache
	// adapters store, so hits are byte-identical to the first response.
	out, err := json.Marshal(json.RawMessage(body))
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder payload: %w", err)
	}
	return out, nil
}

func (s *ReverseService) store(ctx context.Context, key string, body []byte) {
	ttl := int(s.policy.TTL.Seconds())
	if err := s.cache.Set(ctx, key, json.RawMessage(body), ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("reverse cache write failed")
	}
}

// checkCoordinates accepts finite degrees only. ParseFloat accepts "NaN",
// which compares false against every bound.
func checkCoordinates(lat, lon string) error {
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil || !finite(la) || !finite(lo) {
		return domain.ErrInvalidCoordinates
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return domain.ErrInvalidCoordinates
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

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
