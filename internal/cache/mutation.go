package cache

import "github.com/google/uuid"

// MutationKind is a write that makes cached reads stale.
type MutationKind string

const (
	StatusUpdated   MutationKind = "status-updated"
	FavoriteToggled MutationKind = "favorite-toggled"
	ListingSaved    MutationKind = "listing-saved"
	PriceChanged    MutationKind = "price-changed"
	DetailChanged   MutationKind = "detail-changed"
	QueueChanged    MutationKind = "queue-changed"
	ListingsExpired MutationKind = "listings-expired"
)

type Mutation struct {
	Kind      MutationKind
	ListingID uuid.UUID
	View      FavoritesView
	UserID    uuid.UUID // set for per-user mutations
}

func StatusUpdate(listingID uuid.UUID) Mutation {
	return Mutation{Kind: StatusUpdated, ListingID: listingID}
}

func FavoriteToggle(view FavoritesView, userID, listingID uuid.UUID) Mutation {
	return Mutation{Kind: FavoriteToggled, ListingID: listingID, View: view, UserID: userID}
}

func ListingSave(listingID uuid.UUID) Mutation {
	return Mutation{Kind: ListingSaved, ListingID: listingID}
}

func PriceChange(listingID uuid.UUID) Mutation {
	return Mutation{Kind: PriceChanged, ListingID: listingID}
}

func DetailChange(listingID uuid.UUID) Mutation {
	return Mutation{Kind: DetailChanged, ListingID: listingID}
}

// QueueChange is a listing submitted or edited by its agent, which the moderation queue shows.
func QueueChange(listingID uuid.UUID) Mutation {
	return Mutation{Kind: QueueChanged, ListingID: listingID}
}

func ListingsExpire() Mutation {
	return Mutation{Kind: ListingsExpired}
}

// Dependencies returns the cache names a mutation invalidates.
func Dependencies(m Mutation) []string {
	switch m.Kind {
	case StatusUpdated:
		return []string{AdminListings, AdminStats, Listings}
	case FavoriteToggled:
		return []string{m.View.CacheName(), FavoriteIDs, IsFavorited(m.ListingID)}
	case ListingSaved:
		return []string{Listings}
	case PriceChanged:
		return []string{PriceHistory(m.ListingID)}
	case DetailChanged:
		return []string{ListingDetail(m.ListingID)}
	case QueueChanged:
		return []string{AdminListings, AdminStats}
	case ListingsExpired:
		return []string{Listings, AdminListings, AdminStats}
	default:
		return nil
	}
}

// Scope is the params a mutation is limited to, or "" when it touches every entry
// under its names.
func (m Mutation) Scope() string {
	if m.Kind == FavoriteToggled && m.UserID != uuid.Nil {
		return UserScope(m.UserID)
	}
	return ""
}
