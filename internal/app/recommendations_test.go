package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/app"
	"staybook/internal/domain"
)

func TestRecommendations_ParsesFencedAnswerAndCaches(t *testing.T) {
	llm := &fakeLLM{answer: "Sure!\n```json\n[" +
		`{"name":"Fort Santiago","category":"history","description":"Old fort","distance":"1.2 km"},` +
		`{"name":"  ","category":"x"}` +
		"]\n```"}
	svc := app.NewRecommendationService(llm, newFakeCache(), time.Hour)
	q := app.RecommendationQuery{Hotel: "Lima Park", Lat: 13.75, Lon: 121.05, Limit: 3}

	recs, err := svc.Nearby(context.Background(), q)
	if err != nil || len(recs) != 1 || recs[0].Name != "Fort Santiago" || recs[0].Distance != "1.2 km" {
		t.Fatalf("got %+v (%v)", recs, err)
	}
	if _, err := svc.Nearby(context.Background(), q); err != nil || llm.calls != 1 {
		t.Fatalf("expected cached answer, calls=%d err=%v", llm.calls, err)
	}
}

func TestRecommendations_DegradeToEmpty(t *testing.T) {
	for name, llm := range map[string]*fakeLLM{
		"model down": {err: errBoom},
		"prose":      {answer: "I cannot help with that."},
		"bad json":   {answer: `[{"name": }]`},
	} {
		svc := app.NewRecommendationService(llm, newFakeCache(), time.Hour)
		recs, err := svc.Nearby(context.Background(), app.RecommendationQuery{Lat: 13.7, Lon: 121})
		if err != nil || recs == nil || len(recs) != 0 {
			t.Fatalf("%s: want empty list, got %v (%v)", name, recs, err)
		}
	}
}

func TestRecommendations_RequiresCoordinates(t *testing.T) {
	svc := app.NewRecommendationService(&fakeLLM{}, newFakeCache(), time.Hour)
	if _, err := svc.Nearby(context.Background(), app.RecommendationQuery{}); !errors.Is(err, domain.ErrMissingCoordinates) {
		t.Fatalf("got %v", err)
	}
}

func TestGeocode(t *testing.T) {
	svc := app.NewGeocodeService(fakePlaces{places: []domain.Place{{Name: "Batangas City", Lat: 13.75, Lon: 121.05}}})
	if _, err := svc.Search(context.Background(), " ", 5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty query: %v", err)
	}
	ps, err := svc.Search(context.Background(), "batangas", 0)
	if err != nil || len(ps) != 1 {
		t.Fatalf("search: %v %v", ps, err)
	}

	empty, err := app.NewGeocodeService(fakePlaces{}).Search(context.Background(), "nowhere", 5)
	if err != nil || empty == nil {
		t.Fatalf("want empty list, got %v %v", empty, err)
	}
}
