// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staybook/internal/app"
	"staybook/internal/domain"
)

type Handlers struct {
	Reverse  *app.ReverseService
	Offers   *app.OfferService
	Search   *app.SearchService
	Recs     *app.RecommendationService
	Geocode  *app.GeocodeService
	Bookings *app.BookingService
	Auth     domain.TokenVerifier
}

type errorBody struct {
	Error string `json:"error"`
}

const maxBody = 1 << 20

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/reverse", h.reverse)
		r.Get("/hotels", h.hotelOffers)
		r.Get("/hotels/search", h.searchHotels)
		r.Get("/recommendations", h.recommendations)
		r.Get("/geocode", h.geocode)

		r.Route("/bookings", func(r chi.Router) {
			r.Use(RequireAuth(h.Auth))
			r.Get("/", h.listBookings)
			r.Post("/", h.createBooking)
			r.Get("/{id}", h.getBooking)
			r.Patch("/{id}", h.updateBooking)
			r.Delete("/{id}", h.cancelBooking)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps service errors onto HTTP statuses. Anything unclassified is a
// 500 and gets logged with the route.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingCoordinates):
		writeError(w, http.StatusBadRequest, "Missing latitude or longitude")
	case errors.Is(err, domain.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, "Invalid latitude or longitude")
	case errors.Is(err, domain.ErrInvalidDates), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the body
		w.WriteHeader(499)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// coord reads a float query parameter; absent, malformed or non-finite
// reads as 0.
func coord(r *http.Request, k string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get(k)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func intParam(r *http.Request, k string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(k))
	return n
}

func (h *Handlers) reverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body, err := h.Reverse.Reverse(r.Context(), q.Get("lat"), q.Get("lon"))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write reverse body")
	}
}

func (h *Handlers) hotelOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.Offers.Nearby(r.Context(), app.OfferQuery{
		Lat:      coord(r, "lat"),
		Lon:      coord(r, "lon"),
		CheckIn:  q.Get("checkIn"),
		CheckOut: q.Get("checkOut"),
		Adults:   intParam(r, "adults"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.Search.Search(r.Context(), app.CitySearch{
		City:     q.Get("city"),
		CheckIn:  q.Get("checkIn"),
		CheckOut: q.Get("checkOut"),
		Adults:   intParam(r, "adults"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) recommendations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Recs.Nearby(r.Context(), app.RecommendationQuery{
		Hotel: r.URL.Query().Get("name"),
		Lat:   coord(r, "lat"),
		Lon:   coord(r, "lon"),
		Limit: intParam(r, "limit"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) geocode(w http.ResponseWriter, r *http.Request) {
	out, err := h.Geocode.Search(r.Context(), r.URL.Query().Get("q"), intParam(r, "limit"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- bookings ----

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func caller(r *http.Request) domain.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.List(r.Context(), caller(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var in app.BookingInput
	if !decode(w, r, &in) {
		return
	}
	b, err := h.Bookings.Create(r.Context(), caller(r), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/bookings/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	var p app.BookingPatch
	if !decode(w, r, &p) {
		return
	}
	b, err := h.Bookings.Update(r.Context(), caller(r), chi.URLParam(r, "id"), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.Cancel(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
