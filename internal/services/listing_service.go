package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/access"
	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

// expirable statuses are swept to expired once expires_at passes.
var expirable = []any{models.StatusPending, models.StatusApproved, models.StatusNeedFix}

type ListingService struct {
	data  *store.Service
	cache *cache.Synchronizer
	cfg   config.ListingsConfig
	log   logging.Logger
}

func NewListingService(data *store.Service, c *cache.Synchronizer, cfg config.ListingsConfig, log logging.Logger) *ListingService {
	return &ListingService{data: data, cache: c, cfg: cfg, log: log}
}

type listingParams struct {
	View    string        `json:"view"`
	Filters query.Filters `json:"filters"`
}

// Browse backs the desktop listings table.
func (s *ListingService) Browse(ctx context.Context, f query.Filters) ([]models.Listing, error) {
	return s.list(ctx, query.ListingsView, f)
}

// Search backs the mobile search tab.
func (s *ListingService) Search(ctx context.Context, f query.Filters) ([]models.Listing, error) {
	return s.list(ctx, query.SearchView, f)
}

// Map backs the map screen.
func (s *ListingService) Map(ctx context.Context, f query.Filters) ([]models.Listing, error) {
	return s.list(ctx, query.MapView, f)
}

func (s *ListingService) list(ctx context.Context, v query.View, f query.Filters) ([]models.Listing, error) {
	q, err := v.Build(f)
	if err != nil {
		return nil, err
	}
	key := cache.NewKey(cache.Listings, listingParams{View: v.Name, Filters: f})
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) ([]models.Listing, error) {
		return store.Collect(s.data.Listings.Select(ctx, q))
	})
}

// Detail returns one listing.
func (s *ListingService) Detail(ctx context.Context, id uuid.UUID) (models.Listing, error) {
	key := cache.NewKey(cache.ListingDetail(id), nil)
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) (models.Listing, error) {
		return store.First(ctx, s.data.Listings, query.Where(query.Eq("id", id)).Joining("Photos"))
	})
}

// PriceHistory returns the listing's prices, oldest first.
func (s *ListingService) PriceHistory(ctx context.Context, id uuid.UUID) ([]models.PriceHistoryEntry, error) {
	key := cache.NewKey(cache.PriceHistory(id), nil)
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) ([]models.PriceHistoryEntry, error) {
		q := query.Where(query.Eq("listing_id", id)).OrderedBy(
			query.OrderBy{Column: "changed_at"},
			query.OrderBy{Column: "id"},
		)
		return store.Collect(s.data.Prices.Select(ctx, q))
	})
}

// PriceTrend summarises a history. It is nil with fewer than two entries.
func PriceTrend(entries []models.PriceHistoryEntry) *models.PriceTrend {
	if len(entries) < 2 {
		return nil
	}
	first, last := entries[0].PriceEUR, entries[len(entries)-1].PriceEUR
	t := &models.PriceTrend{First: first, Last: last, Min: first, Max: first}
	for _, e := range entries {
		t.Min = min(t.Min, e.PriceEUR)
		t.Max = max(t.Max, e.PriceEUR)
	}
	if first != 0 {
		t.Change = float64(last-first) / float64(first)
	}
	return t
}

// validate runs the form checks. Nothing is sent when it fails. Photos are
// checked when required or when the draft carries any.
func (s *ListingService) validate(d models.ListingDraft, requirePhotos bool) error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("title", "Title is required")
	}
	if d.PriceEUR <= 0 {
		return invalid("price_eur", "Price must be greater than 0")
	}
	if d.Bedrooms < 1 {
		return invalid("bedrooms", "At least 1 bedroom is required")
	}
	if d.Bathrooms != nil && *d.Bathrooms < 0 {
		return invalid("bathrooms", "Bathrooms cannot be negative")
	}
	if d.AreaM2 != nil && *d.AreaM2 <= 0 {
		return invalid("area_m2", "Area must be greater than 0")
	}
	if !requirePhotos && d.Photos == nil {
		return nil
	}
	if n := len(d.Photos); n < s.cfg.MinPhotos {
		return invalid("photos", fmt.Sprintf("Add at least %d photos before submitting", s.cfg.MinPhotos))
	} else if s.cfg.MaxPhotos > 0 && n > s.cfg.MaxPhotos {
		return invalid("photos", fmt.Sprintf("You can add at most %d photos", s.cfg.MaxPhotos))
	}
	for _, u := range d.Photos {
		if strings.TrimSpace(u) == "" {
			return invalid("photos", "Photo URL cannot be empty")
		}
	}
	return nil
}

// savePhotos stores urls as the listing's photos, first one primary.
func (s *ListingService) savePhotos(ctx context.Context, listingID uuid.UUID, urls []string) ([]models.ListingPhoto, error) {
	photos := models.PhotosFromURLs(listingID, urls)
	for i := range photos {
		photos[i].URL = strings.TrimSpace(photos[i].URL)
		if err := s.data.Photos.Insert(ctx, &photos[i]); err != nil {
			return nil, err
		}
	}
	return photos, nil
}

func (s *ListingService) photosOf(ctx context.Context, listingID uuid.UUID) ([]models.ListingPhoto, error) {
	q := query.Where(query.Eq("listing_id", listingID)).OrderedBy(query.OrderBy{Column: "position"})
	return store.Collect(s.data.Photos.Select(ctx, q))
}

// Create stores a new pending listing owned by viewer and records its first price.
func (s *ListingService) Create(ctx context.Context, viewer *models.User, d models.ListingDraft) (*models.Listing, error) {
	if viewer == nil {
		return nil, ErrSignInRequired
	}
	if !access.Allowed(viewer, access.Intent{Kind: access.NavAddListing}) {
		return nil, ErrForbidden
	}
	if err := s.validate(d, true); err != nil {
		return nil, err
	}

	l := models.Listing{
		AgentID:     viewer.ID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		PriceEUR:    d.PriceEUR,
		Bedrooms:    d.Bedrooms,
		Bathrooms:   d.Bathrooms,
		AreaM2:      d.AreaM2,
		Address:     d.Address,
		City:        d.City,
		PostalCode:  d.PostalCode,
		Lat:         d.Lat,
		Lng:         d.Lng,
		ExpiresAt:   d.ExpiresAt,
		Status:      models.StatusPending,
	}
	if err := s.data.Listings.Insert(ctx, &l); err != nil {
		return nil, err
	}
	if err := s.recordPrice(ctx, l.ID, l.PriceEUR); err != nil {
		return nil, err
	}
	photos, err := s.savePhotos(ctx, l.ID, d.Photos)
	if err != nil {
		return nil, err
	}
	l.Photos = photos

	s.log.Info(ctx, "listing created", "listing_id", l.ID, "agent_id", viewer.ID, "photos", len(photos))
	s.invalidate(ctx, cache.ListingSave(l.ID))
	s.invalidate(ctx, cache.QueueChange(l.ID))
	return &l, nil
}

// Update edits a listing. Status is applied only when viewer may change it.
func (s *ListingService) Update(ctx context.Context, viewer *models.User, id uuid.UUID, d models.ListingDraft) (*models.Listing, error) {
	if viewer == nil {
		return nil, ErrSignInRequired
	}
	current, err := store.First(ctx, s.data.Listings, query.Where(query.Eq("id", id)))
	if err != nil {
		return nil, err
	}
	if !access.Allowed(viewer, access.Intent{Kind: access.EditListing, Listing: &current}) {
		return nil, ErrForbidden
	}
	if err := s.validate(d, false); err != nil {
		return nil, err
	}

	patch := map[string]any{
		"title":       strings.TrimSpace(d.Title),
		"description": d.Description,
		"price_eur":   d.PriceEUR,
		"bedrooms":    d.Bedrooms,
		"bathrooms":   d.Bathrooms,
		"area_m2":     d.AreaM2,
		"address":     d.Address,
		"city":        d.City,
		"postal_code": d.PostalCode,
		"lat":         d.Lat,
		"lng":         d.Lng,
		"expires_at":  d.ExpiresAt,
	}
	statusChanged := false
	if d.Status != "" && access.Allowed(viewer, access.Intent{Kind: access.EditListingStatus}) {
		st, err := models.ParseListingStatus(d.Status)
		if err != nil {
			return nil, invalid("status", err.Error())
		}
		patch["status"] = st
		statusChanged = st != current.Status
	}

	updated, err := s.data.Listings.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if d.Photos != nil {
		if _, err := s.data.Photos.Delete(ctx, query.Where(query.Eq("listing_id", id))); err != nil {
			return nil, err
		}
		if updated.Photos, err = s.savePhotos(ctx, id, d.Photos); err != nil {
			return nil, err
		}
	} else if updated.Photos, err = s.photosOf(ctx, id); err != nil {
		return nil, err
	}

	if updated.PriceEUR != current.PriceEUR {
		if err := s.recordPrice(ctx, id, updated.PriceEUR); err != nil {
			return nil, err
		}
		s.invalidate(ctx, cache.PriceChange(id))
	}
	s.log.Info(ctx, "listing updated", "listing_id", id, "by", viewer.ID)
	s.invalidate(ctx, cache.DetailChange(id))
	if statusChanged {
		s.invalidate(ctx, cache.StatusUpdate(id))
	} else {
		s.invalidate(ctx, cache.QueueChange(id))
	}
	s.invalidate(ctx, cache.ListingSave(id))
	return updated, nil
}

func (s *ListingService) recordPrice(ctx context.Context, listingID uuid.UUID, price int) error {
	return s.data.Prices.Insert(ctx, &models.PriceHistoryEntry{
		ListingID: listingID,
		PriceEUR:  price,
		ChangedAt: time.Now().UTC(),
	})
}

// ExpireDue moves listings whose expires_at has passed to expired.
func (s *ListingService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	q := query.Where(
		query.Lte("expires_at", now),
		query.In("status", expirable...),
	)
	due, err := store.Collect(s.data.Listings.Select(ctx, q))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, l := range due {
		if _, err := s.data.Listings.Update(ctx, l.ID, map[string]any{"status": models.StatusExpired}); err != nil {
			s.log.Warn(ctx, "expire listing failed", "listing_id", l.ID, "err", err)
			continue
		}
		expired++
		s.invalidate(ctx, cache.DetailChange(l.ID))
	}
	if expired > 0 {
		s.invalidate(ctx, cache.ListingsExpire())
	}
	return expired, nil
}

// invalidate logs refetch failures. The write already succeeded and the stale
// entries are retried on the next read.
func (s *ListingService) invalidate(ctx context.Context, m cache.Mutation) {
	if err := s.cache.Invalidate(ctx, m); err != nil {
		s.log.Warn(ctx, "cache refetch failed", "mutation", m.Kind, "err", err)
	}
}
