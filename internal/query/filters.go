package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned when a non-sentinel filter value cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

// Key names a filter field. The string is also the URL query parameter.
type Key string

const (
	KeySearch     Key = "search"
	KeyStatus     Key = "status"
	KeyPriceRange Key = "price_range"
	KeyPriceMin   Key = "price_min"
	KeyPriceMax   Key = "price_max"
	KeyBedrooms   Key = "bedrooms"
	KeyBathrooms  Key = "bathrooms"
	KeyAreaMin    Key = "area_min"
	KeyAreaMax    Key = "area_max"
)

// Keys is the fold order. It is fixed so equal filters build equal queries.
var Keys = []Key{
	KeySearch, KeyStatus, KeyPriceRange, KeyPriceMin, KeyPriceMax,
	KeyBedrooms, KeyBathrooms, KeyAreaMin, KeyAreaMax,
}

// Filters is the raw filter state as entered in the UI. Every field is optional.
type Filters struct {
	SearchTerm   string `json:"searchTerm,omitempty"`
	StatusFilter string `json:"statusFilter,omitempty"`
	PriceRange   string `json:"priceRange,omitempty"`
	PriceMin     string `json:"priceMin,omitempty"`
	PriceMax     string `json:"priceMax,omitempty"`
	Bedrooms     string `json:"bedrooms,omitempty"`
	Bathrooms    string `json:"bathrooms,omitempty"`
	AreaMin      string `json:"areaMin,omitempty"`
	AreaMax      string `json:"areaMax,omitempty"`
}

// FiltersFromValues reads filters from URL query parameters.
func FiltersFromValues(v url.Values) Filters {
	return Filters{
		SearchTerm:   v.Get(string(KeySearch)),
		StatusFilter: v.Get(string(KeyStatus)),
		PriceRange:   v.Get(string(KeyPriceRange)),
		PriceMin:     v.Get(string(KeyPriceMin)),
		PriceMax:     v.Get(string(KeyPriceMax)),
		Bedrooms:     v.Get(string(KeyBedrooms)),
		Bathrooms:    v.Get(string(KeyBathrooms)),
		AreaMin:      v.Get(string(KeyAreaMin)),
		AreaMax:      v.Get(string(KeyAreaMax)),
	}
}

// Get returns the raw value for k.
func (f Filters) Get(k Key) string {
	switch k {
	case KeySearch:
		return f.SearchTerm
	case KeyStatus:
		return f.StatusFilter
	case KeyPriceRange:
		return f.PriceRange
	case KeyPriceMin:
		return f.PriceMin
	case KeyPriceMax:
		return f.PriceMax
	case KeyBedrooms:
		return f.Bedrooms
	case KeyBathrooms:
		return f.Bathrooms
	case KeyAreaMin:
		return f.AreaMin
	case KeyAreaMax:
		return f.AreaMax
	default:
		return ""
	}
}

// IsSentinel reports whether raw means "no filter".
func IsSentinel(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "any":
		return true
	default:
		return false
	}
}

// PriceRange is an inclusive bound pair; nil means unbounded on that side.
type PriceRange struct {
	Min *int
	Max *int
}

// ParsePriceRange parses the bucket strings used by the listings view:
// "200000-500000" is both bounds, "1000000" (or "1000000+") is a lower bound only.
func ParsePriceRange(raw string) (PriceRange, error) {
	var pr PriceRange
	if IsSentinel(raw) {
		return pr, nil
	}
	s := strings.TrimSuffix(strings.TrimSpace(raw), "+")
	lo, hi, hasHi := strings.Cut(s, "-")

	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return pr, fmt.Errorf("%w: price range %q", ErrInvalidFilter, raw)
	}
	pr.Min = &from

	if hasHi && strings.TrimSpace(hi) != "" {
		to, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return PriceRange{}, fmt.Errorf("%w: price range %q", ErrInvalidFilter, raw)
		}
		pr.Max = &to
	}
	return pr, nil
}
