package shared

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

// PublicNominatimHost allows at most one request per second.
const PublicNominatimHost = "nominatim.openstreetmap.org"

// DefaultBBox covers Batangas province. The hotel search uses it for every
// city.
var DefaultBBox = domain.BoundingBox{South: 13.50, West: 120.60, North: 14.20, East: 121.50}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	CORSOrigins []string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// upper bound for one API request, upstream retries included
	RequestTimeout time.Duration

	OverpassURL     string
	OverpassRetries int
	OverpassBackoff time.Duration
	HotelBBox       domain.BoundingBox

	NominatimURL        string
	NominatimRPS        int
	NominatimUserAgent  string
	ReverseCacheMax     int
	ReverseCacheBackend string // memory|redis

	LiteAPIBase        string
	LiteAPIKey         string
	LiteAPIRPS         int
	LiteAPICurrency    string
	LiteAPINationality string

	OllamaBase  string
	OllamaModel string

	GoogleClientID string
	RabbitURL      string

	AggregateConcurrency int
	HotelEnrichTimeout   time.Duration // address + pricing for one hotel
	EnrichTimeout        time.Duration // all hotels of one search
	WarmCities           []string
	WarmWorkers          int
}

func Load() Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		CORSOrigins: splitList(env("CORS_ORIGINS", "*")),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/staybook?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,

		OverpassURL:     env("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassRetries: atoi("OVERPASS_RETRIES", 3),
		OverpassBackoff: time.Duration(atoi("OVERPASS_BACKOFF_MS", 3000)) * time.Millisecond,
		HotelBBox:       parseBBox(os.Getenv("HOTEL_BBOX"), DefaultBBox),

		NominatimURL:        env("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:  env("NOMINATIM_USER_AGENT", "staybook/1.0"),
		ReverseCacheMax:     atoi("REVERSE_CACHE_MAX", 10000),
		ReverseCacheBackend: strings.ToLower(env("REVERSE_CACHE_BACKEND", "memory")),

		LiteAPIBase:        env("LITEAPI_BASE_URL", "https://api.liteapi.travel/v3.0"),
		LiteAPIKey:         env("LITEAPI_KEY", ""),
		LiteAPIRPS:         atoi("LITEAPI_RPS", 5),
		LiteAPICurrency:    env("LITEAPI_CURRENCY", "PHP"),
		LiteAPINationality: env("LITEAPI_NATIONALITY", "PH"),

		OllamaBase:  env("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel: env("OLLAMA_MODEL", "llama3"),

		GoogleClientID: env("GOOGLE_CLIENT_ID", ""),
		RabbitURL:      env("RABBITMQ_URL", ""),

		AggregateConcurrency: atoi("AGGREGATE_CONCURRENCY", 16),
		HotelEnrichTimeout:   time.Duration(atoi("HOTEL_ENRICH_TIMEOUT_SECONDS", 20)) * time.Second,
		EnrichTimeout:        time.Duration(atoi("ENRICH_TIMEOUT_SECONDS", 90)) * time.Second,
		WarmCities:           splitList(env("WARM_CITIES", "Batangas")),
		WarmWorkers:          atoi("WARM_WORKERS", 2),
	}
	c.NominatimRPS = nominatimRPS(c.NominatimURL, atoi("NOMINATIM_RPS", 0))
	if c.LiteAPIKey == "" {
		log.Warn().Msg("LITEAPI_KEY is empty; hotels will be listed without prices")
	}
	if c.GoogleClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID is empty; bookings API will reject every token")
	}
	return c
}

// nominatimRPS defaults to the public instance's usage policy, one request per
// second, and to 5 for self-hosted servers.
func nominatimRPS(base string, configured int) int {
	public := false
	if u, err := url.Parse(base); err == nil && strings.EqualFold(u.Hostname(), PublicNominatimHost) {
		public = true
	}
	switch {
	case configured <= 0 && public:
		return 1
	case configured <= 0:
		return 5
	case public && configured > 1:
		log.Warn().Int("NOMINATIM_RPS", configured).Msg("public Nominatim allows 1 request per second; expect throttling or a ban")
	}
	return configured
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseBBox reads "south,west,north,east".
func parseBBox(s string, def domain.BoundingBox) domain.BoundingBox {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return def
	}
	var f [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Warn().Str("HOTEL_BBOX", s).Msg("invalid bounding box, using default")
			return def
		}
		f[i] = v
	}
	return domain.BoundingBox{South: f[0], West: f[1], North: f[2], East: f[3]}
}
