package app

import "time"

// SetClock pins the booking clock and id generator in tests.
func (s *BookingService) SetClock(now func() time.Time, newID func() string) {
	s.now = now
	s.newID = newID
}

func (s *SearchService) SetClock(now func() time.Time) { s.now = now }

func (s *OfferService) SetClock(now func() time.Time) { s.now = now }
