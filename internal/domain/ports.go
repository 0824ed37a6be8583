package domain

import "context"

type BookingRepository interface {
	Create(ctx context.Context, b Booking) error
	Get(ctx context.Context, userID, id string) (Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	Update(ctx context.Context, b Booking) error
	Delete(ctx context.Context, userID, id string) error
}

// SpatialQuerier lists hotel POIs inside a bounding box. A nil result with
// a nil error means the upstream retry budget was exhausted.
type SpatialQuerier interface {
	HotelsIn(ctx context.Context, bb BoundingBox) ([]POI, error)
}

// ReverseGeocoder returns the raw upstream JSON for a coordinate.
// Lat/lon are passed through as the caller supplied them.
type ReverseGeocoder interface {
	ReverseRaw(ctx context.Context, lat, lon string) (status int, body []byte, err error)
}

type PlaceSearcher interface {
	Search(ctx context.Context, q string, limit int) ([]Place, error)
}

// Locator resolves a human-readable locality. It never fails.
type Locator interface {
	Locality(ctx context.Context, lat, lon float64) string
}

type RatesClient interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
}

type Recommender interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e BookingEvent) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
