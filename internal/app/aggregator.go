package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

const (
	MaxHotelsPerSearch = 300
	UnnamedHotel       = "Unnamed Hotel"

	// how far from an OSM point a rates-API property may be to count as the same hotel
	matchRadiusM = 250

	DefaultHotelBudget  = 20 * time.Second
	DefaultEnrichBudget = 90 * time.Second
)

// Aggregator builds hotel lists from the spatial dataset, enriching each
// point with an address and, when available, a price quote.
type Aggregator struct {
	spatial     domain.SpatialQuerier
	locator     domain.Locator
	rates       domain.RatesClient // nil: list without prices
	bbox        domain.BoundingBox
	concurrency int

	hotelBudget  time.Duration // address + pricing for one hotel
	enrichBudget time.Duration // all hotels of one search
}

func NewAggregator(s domain.SpatialQuerier, l domain.Locator, r domain.RatesClient, bb domain.BoundingBox, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Aggregator{
		spatial:      s,
		locator:      l,
		rates:        r,
		bbox:         bb,
		concurrency:  concurrency,
		hotelBudget:  DefaultHotelBudget,
		enrichBudget: DefaultEnrichBudget,
	}
}

// WithBudgets overrides the enrichment time limits. Zero keeps a default.
func (a *Aggregator) WithBudgets(perHotel, total time.Duration) *Aggregator {
	if perHotel > 0 {
		a.hotelBudget = perHotel
	}
	if total > 0 {
		a.enrichBudget = total
	}
	return a
}

// SearchHotelsByCity queries the configured bounding box (q.City does not
// change the area searched) and returns at most MaxHotelsPerSearch hotels
// in upstream order. Points without coordinates are dropped.
//
// Enrichment runs under its own deadline, ending before the caller's. Hotels
// still unresolved when it passes keep the fallback address and no price.
// Only cancellation by the caller fails the search.
func (a *Aggregator) SearchHotelsByCity(ctx context.Context, q domain.SearchQuery) ([]domain.Hotel, error) {
	ctx = observability.WithComponent(ctx, "hotel_search")
	pois, err := a.spatial.HotelsIn(ctx, a.bbox)
	if err != nil {
		return nil, err
	}
	if pois == nil {
		log.Warn().Str("city", q.City).Msg("spatial query exhausted its retries; returning no hotels")
		return []domain.Hotel{}, nil
	}
	if len(pois) > MaxHotelsPerSearch {
		pois = pois[:MaxHotelsPerSearch]
	}

	ectx, cancel := a.enrichContext(ctx)
	defer cancel()

	// one slot per point keeps the upstream order regardless of finish order
	slots := make([]*domain.Hotel, len(pois))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, p := range pois {
		g.Go(func() error {
			slots[i] = a.resolve(ectx, p, q)
			return nil
		})
	}
	_ = g.Wait()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}
	if ectx.Err() != nil {
		log.Warn().Str("city", q.City).Dur("budget", a.enrichBudget).Msg("enrichment budget spent; some hotels are unpriced")
	}

	out := make([]domain.Hotel, 0, len(slots))
	for _, h := range slots {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out, nil
}

// enrichContext ends at the enrichment budget or three quarters of the way
// to the caller's deadline, whichever is sooner, leaving time to respond.
func (a *Aggregator) enrichContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := a.enrichBudget
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl) * 3 / 4; left < budget {
			budget = left
		}
	}
	return context.WithTimeout(ctx, budget)
}

// resolve enriches one point: address first, then pricing. Only a missing
// coordinate drops the point.
func (a *Aggregator) resolve(ctx context.Context, p domain.POI, q domain.SearchQuery) *domain.Hotel {
	if p.Lat == nil || p.Lon == nil {
		return nil
	}
	h := mapHotel(p, q.City)

	ctx, cancel := context.WithTimeout(ctx, a.hotelBudget)
	defer cancel()

	addr := a.locator.Locality(ctx, h.Lat, h.Lon)
	h.Address = &addr

	if a.rates == nil {
		return &h
	}
	quote, err := a.rates.Quote(ctx, domain.QuoteRequest{
		Lat:      h.Lat,
		Lon:      h.Lon,
		RadiusM:  matchRadiusM,
		CheckIn:  q.CheckIn,
		CheckOut: q.CheckOut,
		Adults:   q.Adults,
	})
	switch {
	case err == nil:
		applyQuote(&h, quote)
	case errors.Is(err, domain.ErrNoOffer):
		// unpriced hotel; nothing to log
	default:
		log.Warn().Err(err).Str("hotel", h.ID).Msg("pricing unavailable")
	}
	return &h
}
