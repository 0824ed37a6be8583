package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"staybook/internal/adapters/liteapi"
	"staybook/internal/adapters/memory"
	"staybook/internal/adapters/nominatim"
	"staybook/internal/adapters/observability"
	"staybook/internal/adapters/overpass"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/shared"
)

// warmer precomputes the city searches in WARM_CITIES into Redis so the
// first visitor of the day does not pay for the full aggregation.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Strs("cities", cfg.WarmCities).
		Int("workers", cfg.WarmWorkers).
		Msg("warmer starting")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	var rates domain.RatesClient
	if cfg.LiteAPIKey != "" {
		c, err := liteapi.New(cfg.LiteAPIBase, cfg.LiteAPIKey, cfg.LiteAPIRPS,
			liteapi.Options{Currency: cfg.LiteAPICurrency, Nationality: cfg.LiteAPINationality})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize rates client")
		}
		rates = c
	}
	geo := nominatim.New(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimRPS)
	reverse := app.NewReverseService(geo, memory.New(cfg.ReverseCacheMax, 10*time.Minute), app.DefaultReversePolicy())
	spatial := overpass.New(cfg.OverpassURL, cfg.OverpassRetries, cfg.OverpassBackoff)
	agg := app.NewAggregator(spatial, reverse, rates, cfg.HotelBBox, cfg.AggregateConcurrency).
		WithBudgets(cfg.HotelEnrichTimeout, cfg.EnrichTimeout)
	search := app.NewSearchService(agg, cache, cfg.CacheTTL)

	workers := cfg.WarmWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for _, city := range cfg.WarmCities {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			n, err := search.Warm(ctx, app.CitySearch{City: city})
			if err != nil {
				log.Warn().Str("city", city).Err(err).Msg("warm failed")
				return
			}
			log.Info().Str("city", city).Int("hotels", n).Dur("took", time.Since(start)).Msg("warm ok")
		}(city)
	}

	wg.Wait()
	log.Info().Msg("warming completed")
}
