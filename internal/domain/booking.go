package domain

import "time"

const BookingConfirmed = "confirmed"

// DateLayout is the wire and storage format for stay dates.
const DateLayout = "2006-01-02"

type Booking struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	UserEmail     string    `json:"userEmail,omitempty"`
	HotelID       string    `json:"hotelId"`
	HotelName     string    `json:"hotelName"`
	HotelLocation string    `json:"hotelLocation,omitempty"`
	HotelImage    string    `json:"hotelImage,omitempty"`
	RoomType      string    `json:"roomType"`
	NightlyPrice  float64   `json:"nightlyPrice"`
	Currency      string    `json:"currency"`
	CheckIn       time.Time `json:"checkIn"`
	CheckOut      time.Time `json:"checkOut"`
	Guests        int       `json:"guests"`
	TotalPrice    float64   `json:"totalPrice"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type BookingEvent struct {
	Type       string    `json:"type"` // booking.created|booking.updated|booking.cancelled
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	HotelID    string    `json:"hotel_id"`
	HotelName  string    `json:"hotel_name"`
	CheckIn    string    `json:"check_in,omitempty"`
	CheckOut   string    `json:"check_out,omitempty"`
	Guests     int       `json:"guests,omitempty"`
	TotalPrice float64   `json:"total_price,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
