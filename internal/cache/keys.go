package cache

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Cache names.
const (
	Listings        = "listings"
	AdminListings   = "admin-listings"
	AdminStats      = "admin-stats"
	Favorites       = "favorites"
	FavoritesMobile = "favorites-mobile"
	FavoriteIDs     = "favorite-ids"
)

func IsFavorited(listingID uuid.UUID) string   { return "is-favorited:" + listingID.String() }
func ListingDetail(listingID uuid.UUID) string { return "listing-detail:" + listingID.String() }
func PriceHistory(listingID uuid.UUID) string  { return "price-history:" + listingID.String() }

// UserParams are the params of every per-user entry.
func UserParams(userID uuid.UUID) map[string]string {
	return map[string]string{"user_id": userID.String()}
}

// UserScope is the encoded form of UserParams, as stored in Key.Params.
func UserScope(userID uuid.UUID) string {
	return NewKey("", UserParams(userID)).Params
}

// Key identifies one cached result set.
type Key struct {
	Name   string
	Params string
}

// NewKey encodes params as JSON. Struct fields and map keys encode in a stable order.
func NewKey(name string, params any) Key {
	if params == nil {
		return Key{Name: name}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return Key{Name: name, Params: fmt.Sprint(params)}
	}
	return Key{Name: name, Params: string(b)}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Name
	}
	return k.Name + "?" + k.Params
}

// FavoritesView selects which favourites list a toggle belongs to.
type FavoritesView string

const (
	ViewDesktop FavoritesView = "desktop"
	ViewMobile  FavoritesView = "mobile"
)

// ParseFavoritesView defaults to desktop for an empty value.
func ParseFavoritesView(s string) (FavoritesView, error) {
	switch v := FavoritesView(s); v {
	case "":
		return ViewDesktop, nil
	case ViewDesktop, ViewMobile:
		return v, nil
	default:
		return "", fmt.Errorf("unknown favorites view %q", s)
	}
}

// CacheName is the view-local favourites cache.
func (v FavoritesView) CacheName() string {
	switch v {
	case ViewMobile:
		return FavoritesMobile
	case ViewDesktop:
		return Favorites
	default:
		return Favorites
	}
}
