package services

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

func TestAdmin_StatusUpdateRefreshesStatsQueueAndListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)

	pending := e.listing(t, agent, "Pending One", 100, models.StatusPending)
	e.listing(t, agent, "Pending Two", 100, models.StatusPending)
	e.listing(t, agent, "Needs Fix", 100, models.StatusNeedFix)
	e.listing(t, agent, "Live", 100, models.StatusApproved)

	stats, err := e.admin.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Count(models.StatusPending))
	assert.Len(t, stats.ByStatus, len(models.ListingStatuses))

	queue, err := e.admin.Queue(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, queue, 3)
	require.NotNil(t, queue[0].Agent)
	assert.Equal(t, "agent@test.dev", queue[0].Agent.Email)

	approved, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "approved"})
	require.NoError(t, err)
	assert.Len(t, approved, 1)

	updated, err := e.admin.UpdateStatus(ctx, admin, pending.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	stats, err = e.admin.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total, "nothing double counted or dropped")
	assert.Equal(t, int64(1), stats.Count(models.StatusPending))
	assert.Equal(t, int64(2), stats.Count(models.StatusApproved))
	assert.Equal(t, int64(1), stats.Count(models.StatusNeedFix))

	queue, err = e.admin.Queue(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	approved, err = e.listings.Browse(ctx, query.Filters{StatusFilter: "approved"})
	require.NoError(t, err)
	assert.Len(t, approved, 2)
}

func TestAdmin_AnyStatusToAnyStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	l := e.listing(t, agent, "Loft", 100, models.StatusRejected)

	for _, st := range []string{"approved", "merged", "pending", "expired", "need_fix", "rejected"} {
		updated, err := e.admin.UpdateStatus(ctx, admin, l.ID, st)
		require.NoError(t, err, st)
		assert.Equal(t, models.ListingStatus(st), updated.Status)
	}
}

func TestAdmin_Permissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	l := e.listing(t, agent, "Loft", 100, models.StatusPending)

	_, err := e.admin.UpdateStatus(ctx, agent, l.ID, "approved")
	assert.ErrorIs(t, err, ErrForbidden, "owners cannot change status")

	_, err = e.admin.UpdateStatus(ctx, nil, l.ID, "approved")
	assert.ErrorIs(t, err, ErrSignInRequired)

	_, err = e.admin.Queue(ctx, agent)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.admin.Stats(ctx, nil)
	assert.ErrorIs(t, err, ErrSignInRequired)

	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	_, err = e.admin.UpdateStatus(ctx, admin, l.ID, "sold")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = e.admin.UpdateStatus(ctx, admin, uuid.New(), "approved")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdmin_NewSubmissionReachesWarmQueue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)

	queue, err := e.admin.Queue(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, queue)
	stats, err := e.admin.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	l, err := e.listings.Create(ctx, agent, draft("Fresh", 100))
	require.NoError(t, err)

	queue, err = e.admin.Queue(ctx, admin)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, l.ID, queue[0].ID)

	stats, err = e.admin.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count(models.StatusPending))
}

// countingListings counts the selects that reach the listings table.
type countingListings struct {
	store.Table[models.Listing]
	selects atomic.Int32
}

func (c *countingListings) Select(ctx context.Context, q query.Query) iter.Seq2[models.Listing, error] {
	c.selects.Add(1)
	return c.Table.Select(ctx, q)
}

func TestAdmin_StatusUpdateRefetchIsBoundedByCacheSize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	pending := e.listing(t, agent, "Pending", 100, models.StatusPending)

	const maxEntries = 16
	log := logging.Discard()
	c := cache.New(nil, log, cache.WithMaxEntries(maxEntries))
	listings := &countingListings{Table: e.data.Listings}
	data := *e.data
	data.Listings = listings
	browse := NewListingService(&data, c, testListingsConfig, log)
	adminSvc := NewAdminService(listings, c, log)

	for i := range 100 {
		_, err := browse.Browse(ctx, query.Filters{SearchTerm: fmt.Sprintf("street %d", i)})
		require.NoError(t, err)
	}
	assert.Equal(t, maxEntries, c.Len(cache.Listings))

	listings.selects.Store(0)
	_, err := adminSvc.UpdateStatus(ctx, admin, pending.ID, "approved")
	require.NoError(t, err)
	assert.LessOrEqual(t, listings.selects.Load(), int32(maxEntries))

	// the newest search was refetched and is served from the cache
	before := listings.selects.Load()
	_, err = browse.Browse(ctx, query.Filters{SearchTerm: "street 99"})
	require.NoError(t, err)
	assert.Equal(t, before, listings.selects.Load())
}
