package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

// SearchService serves city searches from the shared cache and falls back
// to the aggregator on a miss.
type SearchService struct {
	agg      *Aggregator
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewSearchService(a *Aggregator, c domain.Cache, ttl time.Duration) *SearchService {
	return &SearchService{agg: a, cache: c, cacheTTL: ttl, now: time.Now}
}

type CitySearch struct {
	City     string
	CheckIn  string
	CheckOut string
	Adults   int
}

func (s *SearchService) Search(ctx context.Context, in CitySearch) ([]domain.Hotel, error) {
	q, err := s.query(in)
	if err != nil {
		return nil, err
	}
	key := searchKey(q)
	var out []domain.Hotel
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	return s.refresh(ctx, key, q)
}

// Warm recomputes a search and overwrites its cache entry.
func (s *SearchService) Warm(ctx context.Context, in CitySearch) (int, error) {
	q, err := s.query(in)
	if err != nil {
		return 0, err
	}
	hs, err := s.refresh(ctx, searchKey(q), q)
	return len(hs), err
}

func (s *SearchService) refresh(ctx context.Context, key string, q domain.SearchQuery) ([]domain.Hotel, error) {
	hs, err := s.agg.SearchHotelsByCity(ctx, q)
	if err != nil {
		return nil, err
	}
	// an empty list usually means the spatial API was down; don't pin it
	if len(hs) > 0 {
		if err := s.cache.Set(ctx, key, hs, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("search cache write failed")
		}
	}
	return hs, nil
}

func (s *SearchService) query(in CitySearch) (domain.SearchQuery, error) {
	city := strings.TrimSpace(in.City)
	if city == "" {
		return domain.SearchQuery{}, fmt.Errorf("%w: city is required", domain.ErrValidation)
	}
	ci, co, err := ParseStay(in.CheckIn, in.CheckOut, s.now())
	if err != nil {
		return domain.SearchQuery{}, err
	}
	adults := in.Adults
	if adults <= 0 {
		adults = 2
	}
	return domain.SearchQuery{City: city, CheckIn: ci, CheckOut: co, Adults: adults}, nil
}

func searchKey(q domain.SearchQuery) string {
	return fmt.Sprintf("hotels:%s:%s:%s:%d", strings.ToLower(q.City),
		q.CheckIn.Format(domain.DateLayout), q.CheckOut.Format(domain.DateLayout), q.Adults)
}

// OfferService answers /api/hotels: the best offer near one coordinate.
type OfferService struct {
	rates    domain.RatesClient // nil: always empty
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewOfferService(r domain.RatesClient, c domain.Cache, ttl time.Duration) *OfferService {
	return &OfferService{rates: r, cache: c, cacheTTL: ttl, now: time.Now}
}

type OfferQuery struct {
	Lat, Lon float64
	CheckIn  string
	CheckOut string
	Adults   int
}

// Nearby returns zero or one offers. Zero coordinates count as missing.
func (s *OfferService) Nearby(ctx context.Context, in OfferQuery) ([]domain.HotelOffer, error) {
	if in.Lat == 0 || in.Lon == 0 || math.IsNaN(in.Lat) || math.IsNaN(in.Lon) {
		return nil, domain.ErrMissingCoordinates
	}
	if in.Lat < -90 || in.Lat > 90 || in.Lon < -180 || in.Lon > 180 {
		return nil, domain.ErrInvalidCoordinates
	}
	ci, co, err := ParseStay(in.CheckIn, in.CheckOut, s.now())
	if err != nil {
		return nil, err
	}
	adults := in.Adults
	if adults <= 0 {
		adults = 2
	}
	if s.rates == nil {
		return []domain.HotelOffer{}, nil
	}

	inS, outS := ci.Format(domain.DateLayout), co.Format(domain.DateLayout)
	key := fmt.Sprintf("offers:%.5f:%.5f:%s:%s:%d", in.Lat, in.Lon, inS, outS, adults)
	var cached []domain.HotelOffer
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	ctx = observability.WithComponent(ctx, "offers")
	q, err := s.rates.Quote(ctx, domain.QuoteRequest{Lat: in.Lat, Lon: in.Lon, CheckIn: ci, CheckOut: co, Adults: adults})
	out := []domain.HotelOffer{}
	switch {
	case err == nil:
		out = append(out, offerFrom(q, inS, outS))
	case errors.Is(err, domain.ErrNoOffer):
	default:
		return nil, fmt.Errorf("rates lookup: %w", err)
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}
