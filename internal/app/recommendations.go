package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

const (
	DefaultRecommendations = 5
	MaxRecommendations     = 10
)

type RecommendationService struct {
	llm      domain.Recommender // nil: always empty
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewRecommendationService(r domain.Recommender, c domain.Cache, ttl time.Duration) *RecommendationService {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RecommendationService{llm: r, cache: c, cacheTTL: ttl}
}

type RecommendationQuery struct {
	Hotel    string
	Lat, Lon float64
	Limit    int
}

// Nearby asks the model for places around a hotel. Model failures and
// unparseable answers yield an empty list, never an error.
func (s *RecommendationService) Nearby(ctx context.Context, q RecommendationQuery) ([]domain.Recommendation, error) {
	if q.Lat == 0 || q.Lon == 0 {
		return nil, domain.ErrMissingCoordinates
	}
	if q.Limit <= 0 {
		q.Limit = DefaultRecommendations
	}
	if q.Limit > MaxRecommendations {
		q.Limit = MaxRecommendations
	}
	if s.llm == nil {
		return []domain.Recommendation{}, nil
	}

	key := fmt.Sprintf("recs:%.4f:%.4f:%d", q.Lat, q.Lon, q.Limit)
	var cached []domain.Recommendation
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	answer, err := s.llm.Complete(observability.WithComponent(ctx, "recommendations"), recommendationPrompt(q))
	if err != nil {
		log.Warn().Err(err).Msg("recommendation model unavailable")
		observability.ObserveFallback("recommendations")
		return []domain.Recommendation{}, nil
	}
	recs, err := parseRecommendations(answer)
	if err != nil {
		log.Warn().Err(err).Msg("recommendation answer not usable")
		observability.ObserveFallback("recommendations")
		return []domain.Recommendation{}, nil
	}
	if len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	_ = s.cache.Set(ctx, key, recs, int(s.cacheTTL.Seconds()))
	return recs, nil
}

func recommendationPrompt(q RecommendationQuery) string {
	name := strings.TrimSpace(q.Hotel)
	if name == "" {
		name = "a hotel"
	}
	return fmt.Sprintf(
		"List up to %d places worth visiting near %s at latitude %s, longitude %s. "+
			`Answer with a JSON array only, each item {"name","category","description","distance"}; `+
			"distance is a short human string such as \"1.2 km\".",
		q.Limit, name, ff(q.Lat), ff(q.Lon))
}

// parseRecommendations takes the outermost JSON array in s, which tolerates
// markdown fences and chatter around it.
func parseRecommendations(s string) ([]domain.Recommendation, error) {
	start, end := strings.Index(s, "["), strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in answer")
	}
	var raw []domain.Recommendation
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Recommendation, 0, len(raw))
	for _, r := range raw {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// GeocodeService is forward geocoding for the search box.
type GeocodeService struct {
	places domain.PlaceSearcher
}

func NewGeocodeService(p domain.PlaceSearcher) *GeocodeService {
	return &GeocodeService{places: p}
}

func (s *GeocodeService) Search(ctx context.Context, text string, limit int) ([]domain.Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: q is required", domain.ErrValidation)
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	out, err := s.places.Search(observability.WithComponent(ctx, "geocode"), text, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Place{}
	}
	return out, nil
}
