package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staybook", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staybook", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	// component is the flow that caused the call: hotel_search, reverse, offers...
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staybook", Name: "external_requests_total", Help: "Outbound requests by upstream outcome."},
		[]string{"service", "endpoint", "component", "outcome"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staybook", Name: "external_request_duration_seconds",
			Help: "Outbound request duration seconds.",
			// upstream retries run on 7s to 11s attempt deadlines
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 7, 11, 20, 30},
		},
		[]string{"service", "component"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staybook", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|evict
	)
	Fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staybook", Name: "fallbacks_total", Help: "Degraded responses served instead of upstream data."},
		[]string{"component"},
	)
)

// Serve starts a standalone metrics listener when addr is set.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents, Fallbacks)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

type componentKey struct{}

// WithComponent names the flow behind outbound calls made with ctx. The
// outermost name sticks, so a hotel search that reverse geocodes is counted
// under hotel_search.
func WithComponent(ctx context.Context, name string) context.Context {
	if _, ok := ctx.Value(componentKey{}).(string); ok {
		return ctx
	}
	return context.WithValue(ctx, componentKey{}, name)
}

func componentOf(ctx context.Context) string {
	if c, ok := ctx.Value(componentKey{}).(string); ok {
		return c
	}
	return "other"
}

// Outcome buckets an upstream status. 0 means no response arrived.
func Outcome(status int) string {
	switch {
	case status == 0:
		return "no_response"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}

// ObserveExternal records one outbound call.
func ObserveExternal(ctx context.Context, service, endpoint string, status int, dur time.Duration) {
	comp := componentOf(ctx)
	ExternalRequests.WithLabelValues(service, endpoint, comp, Outcome(status)).Inc()
	ExternalLatency.WithLabelValues(service, comp).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveFallback(component string) {
	Fallbacks.WithLabelValues(component).Inc()
}
