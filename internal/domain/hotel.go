package domain

import "time"

// Hotel is one aggregated search result. Pricing fields stay nil when the
// rates API had nothing (or failed) for the property.
type Hotel struct {
	ID        string   `json:"id"` // Overpass element, e.g. "node/123"
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Address   *string  `json:"address,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Currency  *string  `json:"currency,omitempty"`
	RoomType  *string  `json:"roomType,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Available *bool    `json:"availability,omitempty"`
	ImageURL  *string  `json:"image,omitempty"`
}

// HotelOffer is what /api/hotels returns for a coordinate and stay.
type HotelOffer struct {
	HotelID   string   `json:"hotelId"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	ImageURL  string   `json:"image,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Price     float64  `json:"price"`
	Currency  string   `json:"currency"`
	RoomType  string   `json:"roomType,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Available bool     `json:"availability"`
	CheckIn   string   `json:"checkIn"`
	CheckOut  string   `json:"checkOut"`
}

// Quote is the pricing client's answer for one property.
type Quote struct {
	HotelID   string
	Name      string
	Address   string
	Lat, Lon  float64
	ImageURL  string
	Rating    *float64
	Price     float64
	Currency  string
	RoomType  string
	Amenities []string
	Available bool
}

type QuoteRequest struct {
	Lat, Lon float64
	RadiusM  int // search radius around Lat/Lon; 0 lets the client decide
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
}

type SearchQuery struct {
	City     string
	CheckIn  time.Time
	CheckOut time.Time
	Adults   int
}

// BoundingBox is a south/west/north/east rectangle in degrees.
type BoundingBox struct {
	South, West, North, East float64
}

// POI is a spatial-query element. Lat/Lon are nil when the element has
// neither its own coordinates nor a center.
type POI struct {
	ID   string
	Lat  *float64
	Lon  *float64
	Tags map[string]string
}

type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Type string  `json:"type,omitempty"`
}

type Recommendation struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Distance    string `json:"distance,omitempty"`
}
