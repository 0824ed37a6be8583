package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

const (
	MinGuests = 1
	MaxGuests = 10

	// column limits of the bookings table
	maxHotelID    = 64
	maxHotelText  = 255
	maxHotelImage = 1024
	MaxAmount     = 9999999999.99 // DECIMAL(12,2)
)

// roomMultipliers scale the quoted nightly price by room category.
var roomMultipliers = map[string]float64{
	"standard": 1.0,
	"deluxe":   1.5,
	"suite":    2.0,
}

type BookingInput struct {
	HotelID       string  `json:"hotelId"`
	HotelName     string  `json:"hotelName"`
	HotelLocation string  `json:"hotelLocation"`
	HotelImage    string  `json:"hotelImage"`
	RoomType      string  `json:"roomType"`
	NightlyPrice  float64 `json:"nightlyPrice"`
	Currency      string  `json:"currency"`
	CheckIn       string  `json:"checkIn"`
	CheckOut      string  `json:"checkOut"`
	Guests        int     `json:"guests"`
}

// BookingPatch carries the fields a guest may change. A nil or blank value
// leaves the field as is.
type BookingPatch struct {
	CheckIn  *string `json:"checkIn"`
	CheckOut *string `json:"checkOut"`
	Guests   *int    `json:"guests"`
	RoomType *string `json:"roomType"`
}

type BookingService struct {
	repo   domain.BookingRepository
	events domain.EventPublisher
	now    func() time.Time
	newID  func() string
}

func NewBookingService(r domain.BookingRepository, e domain.EventPublisher) *BookingService {
	return &BookingService{
		repo:   r,
		events: e,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (s *BookingService) Create(ctx context.Context, who domain.Identity, in BookingInput) (domain.Booking, error) {
	if who.Subject == "" {
		return domain.Booking{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.HotelID) == "" || strings.TrimSpace(in.HotelName) == "" {
		return domain.Booking{}, fmt.Errorf("%w: hotelId and hotelName are required", domain.ErrValidation)
	}
	if in.NightlyPrice <= 0 || math.IsNaN(in.NightlyPrice) || math.IsInf(in.NightlyPrice, 0) {
		return domain.Booking{}, fmt.Errorf("%w: nightlyPrice must be positive", domain.ErrValidation)
	}
	if in.NightlyPrice > MaxAmount {
		return domain.Booking{}, fmt.Errorf("%w: nightlyPrice is too large", domain.ErrValidation)
	}
	if in.CheckIn == "" || in.CheckOut == "" {
		return domain.Booking{}, fmt.Errorf("%w: checkIn and checkOut are required", domain.ErrInvalidDates)
	}
	room := strings.ToLower(strings.TrimSpace(in.RoomType))
	if room == "" {
		room = "standard"
	}
	ci, co, err := ParseStay(in.CheckIn, in.CheckOut, s.now())
	if err != nil {
		return domain.Booking{}, err
	}

	now := s.now().UTC()
	b := domain.Booking{
		ID:            s.newID(),
		UserID:        who.Subject,
		UserEmail:     who.Email,
		HotelID:       strings.TrimSpace(in.HotelID),
		HotelName:     strings.TrimSpace(in.HotelName),
		HotelLocation: strings.TrimSpace(in.HotelLocation),
		HotelImage:    strings.TrimSpace(in.HotelImage),
		RoomType:      room,
		NightlyPrice:  in.NightlyPrice,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		CheckIn:       ci,
		CheckOut:      co,
		Guests:        in.Guests,
		Status:        domain.BookingConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if b.Currency == "" {
		b.Currency = "PHP"
	}
	if err := checkBookingFields(b); err != nil {
		return domain.Booking{}, err
	}
	if err := s.price(&b); err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.publish(ctx, "booking.created", b)
	return b, nil
}

// List returns the caller's bookings, newest first.
func (s *BookingService) List(ctx context.Context, who domain.Identity) ([]domain.Booking, error) {
	if who.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	bs, err := s.repo.ListByUser(ctx, who.Subject)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].CreatedAt.After(bs[j].CreatedAt) })
	if bs == nil {
		bs = []domain.Booking{}
	}
	return bs, nil
}

// Get never reveals whether another user's booking exists.
func (s *BookingService) Get(ctx context.Context, who domain.Identity, id string) (domain.Booking, error) {
	if who.Subject == "" {
		return domain.Booking{}, domain.ErrUnauthorized
	}
	return s.repo.Get(ctx, who.Subject, id)
}

func (s *BookingService) Update(ctx context.Context, who domain.Identity, id string, p BookingPatch) (domain.Booking, error) {
	b, err := s.Get(ctx, who, id)
	if err != nil {
		return domain.Booking{}, err
	}

	// ParseStay would read a blank date as today or tomorrow
	in, out := b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout)
	changed := false
	if v := blankAsNil(p.CheckIn); v != nil {
		in, changed = *v, true
	}
	if v := blankAsNil(p.CheckOut); v != nil {
		out, changed = *v, true
	}
	if changed {
		ci, co, err := ParseStay(in, out, s.now())
		if err != nil {
			return domain.Booking{}, err
		}
		b.CheckIn, b.CheckOut = ci, co
	}
	if p.Guests != nil {
		b.Guests = *p.Guests
	}
	if v := blankAsNil(p.RoomType); v != nil {
		b.RoomType = strings.ToLower(*v)
	}
	if err := s.price(&b); err != nil {
		return domain.Booking{}, err
	}
	b.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.publish(ctx, "booking.updated", b)
	return b, nil
}

// Cancel removes the booking outright.
func (s *BookingService) Cancel(ctx context.Context, who domain.Identity, id string) error {
	b, err := s.Get(ctx, who, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, who.Subject, id); err != nil {
		return err
	}
	s.publish(ctx, "booking.cancelled", b)
	return nil
}

// price validates the guest count, room type and stay, then sets TotalPrice.
func (s *BookingService) price(b *domain.Booking) error {
	if b.Guests < MinGuests || b.Guests > MaxGuests {
		return fmt.Errorf("%w: guests must be between %d and %d", domain.ErrValidation, MinGuests, MaxGuests)
	}
	if _, ok := roomMultipliers[b.RoomType]; !ok {
		return fmt.Errorf("%w: unknown room type %q", domain.ErrValidation, b.RoomType)
	}
	if b.CheckIn.Before(dayOf(s.now())) {
		return fmt.Errorf("%w: check-in is in the past", domain.ErrInvalidDates)
	}
	n := nights(b.CheckIn, b.CheckOut)
	if n < 1 {
		return fmt.Errorf("%w: stay must be at least one night", domain.ErrInvalidDates)
	}
	total := TotalPrice(b.NightlyPrice, b.RoomType, n)
	if total > MaxAmount {
		return fmt.Errorf("%w: total price is too large", domain.ErrValidation)
	}
	b.TotalPrice = total
	return nil
}

// checkBookingFields rejects values the bookings table cannot hold.
func checkBookingFields(b domain.Booking) error {
	for _, f := range []struct {
		name, v string
		max     int
	}{
		{"hotelId", b.HotelID, maxHotelID},
		{"hotelName", b.HotelName, maxHotelText},
		{"hotelLocation", b.HotelLocation, maxHotelText},
		{"hotelImage", b.HotelImage, maxHotelImage},
	} {
		if utf8.RuneCountInString(f.v) > f.max {
			return fmt.Errorf("%w: %s is longer than %d characters", domain.ErrValidation, f.name, f.max)
		}
	}
	if !isCurrencyCode(b.Currency) {
		return fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrValidation)
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func blankAsNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// TotalPrice is nightly * room multiplier * nights, rounded to cents.
// Unknown room types price as standard.
func TotalPrice(nightly float64, room string, n int) float64 {
	mult, ok := roomMultipliers[room]
	if !ok {
		mult = 1
	}
	return math.Round(nightly*mult*float64(n)*100) / 100
}

func (s *BookingService) publish(ctx context.Context, typ string, b domain.Booking) {
	if s.events == nil {
		return
	}
	ev := domain.BookingEvent{
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.UserID,
		HotelID:    b.HotelID,
		HotelName:  b.HotelName,
		CheckIn:    b.CheckIn.Format(domain.DateLayout),
		CheckOut:   b.CheckOut.Format(domain.DateLayout),
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", typ).Str("booking", b.ID).Msg("booking event not published")
	}
}
