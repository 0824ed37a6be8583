package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"staybook/internal/domain"
)

/********** alias registries **********/

// Nominatim puts the settlement under whichever key matches its OSM place
// type, so each part is read from the first alias present.
var localityAliases = map[string][]string{
	"place":   {"address.city", "address.town", "address.village", "address.municipality", "address.suburb", "address.county"},
	"region":  {"address.state", "address.province", "address.region"},
	"country": {"address.country"},
}

var hotelTagAliases = map[string][]string{
	"name":     {"name", "name:en", "brand", "operator"},
	"location": {"addr:city", "addr:municipality", "is_in:city", "addr:province"},
	"image":    {"image", "wikimedia_commons"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstTag is firstNonEmptyAlias for flat OSM tag maps.
func firstTag(tags map[string]string, key string) string {
	for _, k := range hotelTagAliases[key] {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ff(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

/********** reverse payload -> locality **********/

// localityFrom reads a reverse payload. ok is false for fallback payloads
// and for bodies without any usable address text.
func localityFrom(payload []byte) (string, bool) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return "", false
	}
	if fb, _ := m["fallback"].(bool); fb {
		return "", false
	}
	s := joinNonEmpty(", ",
		firstNonEmptyAlias(m, localityAliases, "place"),
		firstNonEmptyAlias(m, localityAliases, "region"),
		firstNonEmptyAlias(m, localityAliases, "country"),
	)
	if s == "" {
		s = lookupStr(m, "display_name")
	}
	return s, s != ""
}

/********** POI -> hotel **********/

func mapHotel(p domain.POI, city string) domain.Hotel {
	name := firstTag(p.Tags, "name")
	if name == "" {
		name = UnnamedHotel
	}
	loc := firstTag(p.Tags, "location")
	if loc == "" {
		loc = city
	}
	h := domain.Hotel{
		ID:       p.ID,
		Name:     name,
		Location: loc,
		Lat:      *p.Lat,
		Lon:      *p.Lon,
	}
	if img := firstTag(p.Tags, "image"); strings.HasPrefix(img, "http") {
		h.ImageURL = &img
	}
	return h
}

func applyQuote(h *domain.Hotel, q domain.Quote) {
	price, avail := q.Price, q.Available
	h.Price = &price
	h.Available = &avail
	h.Currency = ptrStr(q.Currency)
	h.RoomType = ptrStr(q.RoomType)
	if len(q.Amenities) > 0 {
		h.Amenities = append([]string(nil), q.Amenities...)
	}
	if h.ImageURL == nil {
		h.ImageURL = ptrStr(q.ImageURL)
	}
}

func offerFrom(q domain.Quote, in, out string) domain.HotelOffer {
	return domain.HotelOffer{
		HotelID:   q.HotelID,
		Name:      q.Name,
		Address:   q.Address,
		Lat:       q.Lat,
		Lon:       q.Lon,
		ImageURL:  q.ImageURL,
		Rating:    q.Rating,
		Price:     q.Price,
		Currency:  q.Currency,
		RoomType:  q.RoomType,
		Amenities: q.Amenities,
		Available: q.Available,
		CheckIn:   in,
		CheckOut:  out,
	}
}
