package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"staybook/internal/domain"
)

// ---- fakes ----

// fakeCache round-trips through JSON like the real adapters do.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	b, ok := c.store[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.store[key] = b
	c.sets++
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
	return nil
}

type geoReply struct {
	status int
	body   string
	err    error
}

// fakeGeocoder plays replies in order; the last one repeats.
type fakeGeocoder struct {
	replies []geoReply
	calls   atomic.Int32
}

func (g *fakeGeocoder) ReverseRaw(ctx context.Context, lat, lon string) (int, []byte, error) {
	n := int(g.calls.Add(1)) - 1
	if n >= len(g.replies) {
		n = len(g.replies) - 1
	}
	r := g.replies[n]
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.status, []byte(r.body), nil
}

type fakeSpatial struct {
	pois []domain.POI
	err  error
}

func (f *fakeSpatial) HotelsIn(ctx context.Context, bb domain.BoundingBox) ([]domain.POI, error) {
	return f.pois, f.err
}

type fakeLocator struct{ addr string }

func (f fakeLocator) Locality(ctx context.Context, lat, lon float64) string { return f.addr }

// fakeRates answers by latitude; anything not listed has no offer.
// Latitudes in hang block until the context ends.
type fakeRates struct {
	quotes map[float64]domain.Quote
	fail   map[float64]error
	hang   map[float64]bool
	calls  atomic.Int32
}

func (f *fakeRates) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	f.calls.Add(1)
	if f.hang[req.Lat] {
		<-ctx.Done()
		return domain.Quote{}, ctx.Err()
	}
	if err, ok := f.fail[req.Lat]; ok {
		return domain.Quote{}, err
	}
	if q, ok := f.quotes[req.Lat]; ok {
		return q, nil
	}
	return domain.Quote{}, domain.ErrNoOffer
}

type fakeLLM struct {
	answer string
	err    error
	calls  int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakePlaces struct{ places []domain.Place }

func (f fakePlaces) Search(ctx context.Context, q string, limit int) ([]domain.Place, error) {
	return f.places, nil
}

type fakeBookings struct {
	mu sync.Mutex
	m  map[string]domain.Booking
}

func newFakeBookings() *fakeBookings { return &fakeBookings{m: map[string]domain.Booking{}} }

func (r *fakeBookings) Create(ctx context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[b.ID] = b
	return nil
}

func (r *fakeBookings) Get(ctx context.Context, userID, id string) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[id]
	if !ok || b.UserID != userID {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *fakeBookings) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.m {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBookings) Update(ctx context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.m[b.ID]; !ok || cur.UserID != b.UserID {
		return domain.ErrNotFound
	}
	r.m[b.ID] = b
	return nil
}

func (r *fakeBookings) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.m[id]; !ok || cur.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.m, id)
	return nil
}

type fakePublisher struct {
	events []domain.BookingEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
