package liteapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"staybook/internal/adapters/liteapi"
	"staybook/internal/domain"
)

func stay() (time.Time, time.Time) {
	in := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	return in, in.AddDate(0, 0, 2)
}

func TestQuote_CheapestOfferWithRetry(t *testing.T) {
	var rateHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/data/hotels", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key")
		}
		if r.URL.Query().Get("latitude") != "13.75" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"lp42","name":"Casa Batangas","address":"P. Burgos St","latitude":13.75,"longitude":121.05,"main_photo":"https://img/x.jpg","rating":8.4}]}`))
	})
	mux.HandleFunc("/hotels/rates", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&rateHits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["checkin"] != "2026-12-01" || body["checkout"] != "2026-12-03" || body["currency"] != "PHP" {
			t.Errorf("unexpected rates body: %v", body)
		}
		_, _ = w.Write([]byte(`{"data":[{"hotelId":"lp42","roomTypes":[
			{"offerRetailRate":{"amount":5400,"currency":"PHP"},"rates":[{"name":"Deluxe King"}]},
			{"offerRetailRate":{"amount":3200,"currency":"PHP"},"rates":[{"name":"Standard Twin"}]}
		]}]}`))
	})
	mux.HandleFunc("/data/hotel", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"hotelFacilities":["Pool","WiFi"]}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cl, err := liteapi.New(ts.URL, "test-key", 100, liteapi.Options{Currency: "PHP", Nationality: "PH"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	in, out := stay()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q, err := cl.Quote(ctx, domain.QuoteRequest{Lat: 13.75, Lon: 121.05, CheckIn: in, CheckOut: out, Adults: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if q.HotelID != "lp42" || q.Price != 3200 || q.Currency != "PHP" || q.RoomType != "Standard Twin" || !q.Available {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if len(q.Amenities) != 2 || q.Amenities[0] != "Pool" {
		t.Fatalf("unexpected amenities: %v", q.Amenities)
	}
	if atomic.LoadInt32(&rateHits) != 2 {
		t.Fatalf("expected one retry on 503, got %d calls", rateHits)
	}
}

func TestQuote_NoHotelIsNoOffer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	cl, _ := liteapi.New(ts.URL, "k", 100, liteapi.Options{})
	in, out := stay()
	_, err := cl.Quote(context.Background(), domain.QuoteRequest{Lat: 1, Lon: 1, CheckIn: in, CheckOut: out})
	if !errors.Is(err, domain.ErrNoOffer) {
		t.Fatalf("expected ErrNoOffer, got %v", err)
	}
}

func TestQuote_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := liteapi.New(ts.URL, "bad", 100, liteapi.Options{})
	in, out := stay()
	_, err := cl.Quote(context.Background(), domain.QuoteRequest{Lat: 1, Lon: 1, CheckIn: in, CheckOut: out})
	if !errors.Is(err, liteapi.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := liteapi.New("http://x", "", 1, liteapi.Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
