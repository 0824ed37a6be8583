package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/googleauth"
	server "staybook/internal/adapters/http_server"
	"staybook/internal/adapters/liteapi"
	"staybook/internal/adapters/memory"
	"staybook/internal/adapters/nominatim"
	"staybook/internal/adapters/observability"
	"staybook/internal/adapters/ollama"
	"staybook/internal/adapters/overpass"
	"staybook/internal/adapters/rabbitmq"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/shared"
	mysqlrepo "staybook/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// caches
	redisCache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; cached endpoints will hit upstream")
	}
	local := memory.New(cfg.ReverseCacheMax, 10*time.Minute)
	var reverseCache domain.Cache = local
	if cfg.ReverseCacheBackend == "redis" {
		reverseCache = redisCache
	}

	// upstreams
	geo := nominatim.New(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimRPS)
	spatial := overpass.New(cfg.OverpassURL, cfg.OverpassRetries, cfg.OverpassBackoff)
	var rates domain.RatesClient
	if cfg.LiteAPIKey != "" {
		c, err := liteapi.New(cfg.LiteAPIBase, cfg.LiteAPIKey, cfg.LiteAPIRPS,
			liteapi.Options{Currency: cfg.LiteAPICurrency, Nationality: cfg.LiteAPINationality})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize rates client")
		}
		rates = c
	}
	var auth domain.TokenVerifier
	if cfg.GoogleClientID != "" {
		v, err := googleauth.New(ctx, cfg.GoogleClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize token verifier")
		}
		auth = v
	}
	var events domain.EventPublisher = rabbitmq.Noop{}
	if cfg.RabbitURL != "" {
		events = rabbitmq.New(cfg.RabbitURL)
	}

	// services
	reverse := app.NewReverseService(geo, reverseCache, app.DefaultReversePolicy())
	agg := app.NewAggregator(spatial, reverse, rates, cfg.HotelBBox, cfg.AggregateConcurrency).
		WithBudgets(cfg.HotelEnrichTimeout, cfg.EnrichTimeout)
	h := &server.Handlers{
		Reverse:  reverse,
		Offers:   app.NewOfferService(rates, redisCache, cfg.CacheTTL),
		Search:   app.NewSearchService(agg, redisCache, cfg.CacheTTL),
		Recs:     app.NewRecommendationService(ollama.New(cfg.OllamaBase, cfg.OllamaModel), local, 6*time.Hour),
		Geocode:  app.NewGeocodeService(geo),
		Bookings: app.NewBookingService(mysqlrepo.New(db), events),
		Auth:     auth,
	}

	// http
	srv := server.New(cfg.RequestTimeout, cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
