package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vikasavnish/listinghub/internal/models"
)

// Contributor turns one non-sentinel raw value into predicates.
type Contributor func(raw string) ([]Predicate, error)

// View is a call-site-specific query shape.
type View struct {
	Name         string
	Base         []Predicate
	Contributors map[Key]Contributor
	With         []string
}

// SearchColumns are matched by the free-text search.
var SearchColumns = []string{"title", "description", "city"}

// Build folds the view's contributors over f. Sentinel values never reach a contributor.
func (v View) Build(f Filters) (Query, error) {
	q := Query{
		Predicates: append([]Predicate(nil), v.Base...),
		Order:      NewestFirst,
		With:       v.With,
	}
	for _, k := range Keys {
		contribute, ok := v.Contributors[k]
		if !ok {
			continue
		}
		raw := strings.TrimSpace(f.Get(k))
		if IsSentinel(raw) {
			continue
		}
		ps, err := contribute(raw)
		if err != nil {
			return Query{}, err
		}
		q.Predicates = append(q.Predicates, ps...)
	}
	return q, nil
}

// ListingsView is the desktop listings table.
var ListingsView = View{
	Name: "listings",
	Contributors: map[Key]Contributor{
		KeySearch:     searchTerm,
		KeyStatus:     statusEquals,
		KeyPriceRange: priceRange,
	},
}

// SearchView is the mobile search tab. Only approved listings are shown.
var SearchView = View{
	Name: "search",
	Base: []Predicate{Eq("status", models.StatusApproved)},
	Contributors: map[Key]Contributor{
		KeySearch:    searchTerm,
		KeyPriceMin:  intBound("price_eur", OpGte),
		KeyPriceMax:  intBound("price_eur", OpLte),
		KeyBedrooms:  intBound("bedrooms", OpGte),
		KeyBathrooms: intBound("bathrooms", OpGte),
	},
}

// MapView backs the map screen and its filter sheet.
var MapView = View{
	Name: "map",
	Base: []Predicate{Eq("status", models.StatusApproved), Unexpired("expires_at")},
	With: []string{"Photos"},
	Contributors: map[Key]Contributor{
		KeyPriceMin:  intBound("price_eur", OpGte),
		KeyPriceMax:  intBound("price_eur", OpLte),
		KeyBedrooms:  intBound("bedrooms", OpGte),
		KeyBathrooms: intBound("bathrooms", OpGte),
		KeyAreaMin:   floatBound("area_m2", OpGte),
		KeyAreaMax:   floatBound("area_m2", OpLte),
	},
}

// AdminQueueView lists listings awaiting moderation with their agent joined.
var AdminQueueView = View{
	Name: "admin-queue",
	Base: []Predicate{In("status", models.StatusPending, models.StatusNeedFix)},
	With: []string{"Agent"},
}

func searchTerm(raw string) ([]Predicate, error) {
	return []Predicate{Search(raw, SearchColumns...)}, nil
}

func statusEquals(raw string) ([]Predicate, error) {
	st, err := models.ParseListingStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return []Predicate{Eq("status", st)}, nil
}

func priceRange(raw string) ([]Predicate, error) {
	pr, err := ParsePriceRange(raw)
	if err != nil {
		return nil, err
	}
	var ps []Predicate
	if pr.Min != nil {
		ps = append(ps, Gte("price_eur", *pr.Min))
	}
	if pr.Max != nil {
		ps = append(ps, Lte("price_eur", *pr.Max))
	}
	return ps, nil
}

func intBound(column string, op Op) Contributor {
	return func(raw string) ([]Predicate, error) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidFilter, column, raw)
		}
		return []Predicate{{Column: column, Op: op, Value: n}}, nil
	}
}

func floatBound(column string, op Op) Contributor {
	return func(raw string) ([]Predicate, error) {
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidFilter, column, raw)
		}
		return []Predicate{{Column: column, Op: op, Value: n}}, nil
	}
}
