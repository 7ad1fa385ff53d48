package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/access"
	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

// AdminStats is the per-status distribution over all listings.
type AdminStats struct {
	Total    int64                `json:"total"`
	ByStatus []models.StatusCount `json:"by_status"`
}

// Count returns the number of listings with status st.
func (a AdminStats) Count(st models.ListingStatus) int64 {
	for _, c := range a.ByStatus {
		if c.Status == st {
			return c.Count
		}
	}
	return 0
}

type AdminService struct {
	listings store.Table[models.Listing]
	cache    *cache.Synchronizer
	log      logging.Logger
}

func NewAdminService(listings store.Table[models.Listing], c *cache.Synchronizer, log logging.Logger) *AdminService {
	return &AdminService{listings: listings, cache: c, log: log}
}

func requireAdmin(viewer *models.User) error {
	if viewer == nil {
		return ErrSignInRequired
	}
	if !access.Decide(viewer, access.Intent{Kind: access.NavAdminDashboard}).Visible {
		return ErrForbidden
	}
	return nil
}

// Queue lists listings awaiting moderation with their agent.
func (s *AdminService) Queue(ctx context.Context, viewer *models.User) ([]models.Listing, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	q, err := query.AdminQueueView.Build(query.Filters{})
	if err != nil {
		return nil, err
	}
	return cache.Get(ctx, s.cache, cache.NewKey(cache.AdminListings, nil), func(ctx context.Context) ([]models.Listing, error) {
		return store.Collect(s.listings.Select(ctx, q))
	})
}

// Stats counts listings per status. Every status is present, zero when unused.
func (s *AdminService) Stats(ctx context.Context, viewer *models.User) (AdminStats, error) {
	if err := requireAdmin(viewer); err != nil {
		return AdminStats{}, err
	}
	return cache.Get(ctx, s.cache, cache.NewKey(cache.AdminStats, nil), func(ctx context.Context) (AdminStats, error) {
		counts, err := s.listings.CountBy(ctx, "status", query.Query{})
		if err != nil {
			return AdminStats{}, err
		}
		stats := AdminStats{ByStatus: make([]models.StatusCount, 0, len(models.ListingStatuses))}
		for _, st := range models.ListingStatuses {
			n := counts[string(st)]
			stats.ByStatus = append(stats.ByStatus, models.StatusCount{Status: st, Count: n})
			stats.Total += n
		}
		return stats, nil
	})
}

// UpdateStatus sets any status on any listing. No transition rules are applied.
func (s *AdminService) UpdateStatus(ctx context.Context, viewer *models.User, id uuid.UUID, status string) (*models.Listing, error) {
	if viewer == nil {
		return nil, ErrSignInRequired
	}
	if !access.Allowed(viewer, access.Intent{Kind: access.EditListingStatus}) {
		return nil, ErrForbidden
	}
	st, err := models.ParseListingStatus(status)
	if err != nil {
		return nil, invalid("status", err.Error())
	}

	updated, err := s.listings.Update(ctx, id, map[string]any{"status": st})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "listing status updated", "listing_id", id, "status", st, "by", viewer.ID)

	if err := s.cache.Invalidate(ctx, cache.StatusUpdate(id)); err != nil {
		s.log.Warn(ctx, "cache refetch failed", "mutation", cache.StatusUpdated, "err", err)
	}
	if err := s.cache.Invalidate(ctx, cache.DetailChange(id)); err != nil {
		s.log.Warn(ctx, "cache refetch failed", "mutation", cache.DetailChanged, "err", err)
	}
	return updated, nil
}
