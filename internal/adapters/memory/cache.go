// Package memory is an in-process domain.Cache with a TTL per entry and an
// upper bound on entry count.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"staybook/internal/adapters/observability"
)

type Cache struct {
	mu  sync.Mutex // serialises the size check with the insert
	c   *gocache.Cache
	max int
}

// New returns a cache holding at most maxEntries values (<=0 means no bound).
// Expired entries are swept every cleanup interval.
func New(maxEntries int, cleanup time.Duration) *Cache {
	return &Cache{c: gocache.New(gocache.NoExpiration, cleanup), max: maxEntries}
}

func (m *Cache) Len() int { return m.c.ItemCount() }

// Values are stored as JSON so a Get hands back the same bytes the Redis
// adapter would.
func (m *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := gocache.NoExpiration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && m.c.ItemCount() >= m.max {
		if _, exists := m.c.Get(key); !exists {
			m.makeRoom()
		}
	}
	m.c.Set(key, b, ttl)
	observability.ObserveCache("memory", "set")
	return nil
}

func (m *Cache) Del(_ context.Context, key string) error {
	m.c.Delete(key)
	observability.ObserveCache("memory", "del")
	return nil
}

// makeRoom drops expired entries, then the entry closest to expiry.
func (m *Cache) makeRoom() {
	m.c.DeleteExpired()
	if m.c.ItemCount() < m.max {
		return
	}
	var (
		victim  string
		soonest int64
	)
	for k, it := range m.c.Items() {
		exp := it.Expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if victim == "" || exp < soonest {
			victim, soonest = k, exp
		}
	}
	if victim != "" {
		m.c.Delete(victim)
		observability.ObserveCache("memory", "evict")
	}
}
