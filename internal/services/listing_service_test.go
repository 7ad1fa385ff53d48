package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

func countListings(t *testing.T, e *env) int {
	t.Helper()
	rows, err := store.Collect(e.data.Listings.Select(context.Background(), query.Query{}))
	require.NoError(t, err)
	return len(rows)
}

func TestCreate_TooFewPhotosIsRejectedLocally(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)

	d := draft("Loft", 250000)
	d.Photos = photos(4)
	_, err := e.listings.Create(context.Background(), agent, d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "photos", verr.Field)
	assert.Contains(t, verr.Error(), "6")
	assert.Equal(t, 0, countListings(t, e))

	d.Photos = photos(11)
	_, err = e.listings.Create(context.Background(), agent, d)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "10")
}

func TestCreate_FieldValidation(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	ctx := context.Background()

	cases := map[string]func(d *models.ListingDraft){
		"title":     func(d *models.ListingDraft) { d.Title = "  " },
		"price_eur": func(d *models.ListingDraft) { d.PriceEUR = 0 },
		"bedrooms":  func(d *models.ListingDraft) { d.Bedrooms = 0 },
		"area_m2":   func(d *models.ListingDraft) { v := -3.0; d.AreaM2 = &v },
	}
	for field, mutate := range cases {
		d := draft("Loft", 100)
		mutate(&d)
		_, err := e.listings.Create(ctx, agent, d)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}
	assert.Equal(t, 0, countListings(t, e))
}

func TestCreate_Permissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.listings.Create(ctx, nil, draft("Loft", 1))
	assert.ErrorIs(t, err, ErrSignInRequired)

	buyer := e.user(t, "buyer@test.dev", models.RoleBuyer)
	_, err = e.listings.Create(ctx, buyer, draft("Loft", 1))
	assert.ErrorIs(t, err, ErrForbidden)

	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	l, err := e.listings.Create(ctx, admin, draft("Admin Loft", 1))
	require.NoError(t, err)
	assert.Equal(t, admin.ID, l.AgentID)
}

func TestCreate_PendingOwnedAndRefreshesListings(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	ctx := context.Background()

	before, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "all"})
	require.NoError(t, err)
	assert.Empty(t, before)

	d := draft("Loft", 250000)
	d.Status = "approved" // ignored on create
	l, err := e.listings.Create(ctx, agent, d)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, l.Status)
	assert.Equal(t, agent.ID, l.AgentID)

	after, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "all"})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, l.ID, after[0].ID)

	history, err := e.listings.PriceHistory(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 250000, history[0].PriceEUR)
}

func TestBrowse_FreshCacheDoesNotRequery(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	ctx := context.Background()
	e.listing(t, agent, "First", 100, models.StatusApproved)

	first, err := e.listings.Browse(ctx, query.Filters{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// written behind the cache's back: no mutation, so no refetch
	e.listing(t, agent, "Second", 100, models.StatusApproved)

	second, err := e.listings.Browse(ctx, query.Filters{})
	require.NoError(t, err)
	assert.Len(t, second, 1)

	other, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "approved"})
	require.NoError(t, err)
	assert.Len(t, other, 2, "different params are a different cache entry")
}

func TestBrowse_InvalidFilter(t *testing.T) {
	e := newEnv(t)
	_, err := e.listings.Search(context.Background(), query.Filters{Bedrooms: "lots"})
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
}

func TestUpdate_OwnerAndAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner@test.dev", models.RoleAgent)
	other := e.user(t, "other@test.dev", models.RoleAgent)
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)

	l, err := e.listings.Create(ctx, owner, draft("Loft", 250000))
	require.NoError(t, err)

	// warm caches that the update must refresh
	_, err = e.listings.Detail(ctx, l.ID)
	require.NoError(t, err)
	_, err = e.listings.PriceHistory(ctx, l.ID)
	require.NoError(t, err)

	_, err = e.listings.Update(ctx, other, l.ID, draft("Mine now", 1))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.listings.Update(ctx, nil, l.ID, draft("x", 1))
	assert.ErrorIs(t, err, ErrSignInRequired)

	_, err = e.listings.Update(ctx, owner, uuid.New(), draft("x", 1))
	assert.ErrorIs(t, err, store.ErrNotFound)

	d := draft("Renovated Loft", 240000)
	d.Status = "approved"
	updated, err := e.listings.Update(ctx, owner, l.ID, d)
	require.NoError(t, err)
	assert.Equal(t, "Renovated Loft", updated.Title)
	assert.Equal(t, models.StatusPending, updated.Status, "owner cannot change status")

	detail, err := e.listings.Detail(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renovated Loft", detail.Title)

	history, err := e.listings.PriceHistory(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 250000, history[0].PriceEUR)
	assert.Equal(t, 240000, history[1].PriceEUR)

	d = draft("Renovated Loft", 240000)
	d.Status = "approved"
	updated, err = e.listings.Update(ctx, admin, l.ID, d)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)

	history, err = e.listings.PriceHistory(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "same price adds no entry")

	d.Status = "sold"
	_, err = e.listings.Update(ctx, admin, l.ID, d)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPriceTrend(t *testing.T) {
	entry := func(p int) models.PriceHistoryEntry { return models.PriceHistoryEntry{PriceEUR: p} }

	assert.Nil(t, PriceTrend(nil))
	assert.Nil(t, PriceTrend([]models.PriceHistoryEntry{entry(100)}))

	tr := PriceTrend([]models.PriceHistoryEntry{entry(200), entry(150), entry(300), entry(250)})
	require.NotNil(t, tr)
	assert.Equal(t, 200, tr.First)
	assert.Equal(t, 250, tr.Last)
	assert.Equal(t, 150, tr.Min)
	assert.Equal(t, 300, tr.Max)
	assert.InDelta(t, 0.25, tr.Change, 1e-9)

	tr = PriceTrend([]models.PriceHistoryEntry{entry(0), entry(10)})
	assert.Equal(t, 0.0, tr.Change)
}

func TestExpireDue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mk := func(title string, status models.ListingStatus, expires *time.Time) models.Listing {
		l := models.Listing{AgentID: agent.ID, Title: title, PriceEUR: 1, Bedrooms: 1, Status: status, ExpiresAt: expires}
		require.NoError(t, e.data.Listings.Insert(ctx, &l))
		return l
	}
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	due := mk("due", models.StatusApproved, &past)
	mk("rejected", models.StatusRejected, &past)
	mk("later", models.StatusApproved, &future)
	mk("never", models.StatusApproved, nil)

	before, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "expired"})
	require.NoError(t, err)
	assert.Empty(t, before)

	n, err := e.listings.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, err := e.listings.Browse(ctx, query.Filters{StatusFilter: "expired"})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, due.ID, after[0].ID)

	n, err = e.listings.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCreate_StoresPhotosFirstPrimary(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	ctx := context.Background()

	d := draft("Loft", 250000)
	l, err := e.listings.Create(ctx, agent, d)
	require.NoError(t, err)
	require.Len(t, l.Photos, 6)

	detail, err := e.listings.Detail(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, detail.Photos, 6)
	for i, p := range detail.Photos {
		assert.Equal(t, d.Photos[i], p.URL)
		assert.Equal(t, i == 0, p.IsPrimary, "photo %d", i)
	}
}

func TestCreate_BlankPhotoURLIsRejected(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)

	d := draft("Loft", 250000)
	d.Photos[3] = "  "
	_, err := e.listings.Create(context.Background(), agent, d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "photos", verr.Field)
	assert.Equal(t, 0, countListings(t, e))
}

func TestUpdate_PhotosKeptOrReplaced(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "owner@test.dev", models.RoleAgent)
	ctx := context.Background()

	l, err := e.listings.Create(ctx, owner, draft("Loft", 250000))
	require.NoError(t, err)
	original := l.Photos

	d := draft("Loft", 250000)
	d.Photos = nil
	updated, err := e.listings.Update(ctx, owner, l.ID, d)
	require.NoError(t, err)
	require.Len(t, updated.Photos, 6, "no photos in the draft keeps the stored ones")
	assert.Equal(t, original[0].URL, updated.Photos[0].URL)

	d.Photos = photos(3)
	_, err = e.listings.Update(ctx, owner, l.ID, d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "photos", verr.Field)

	d.Photos = photos(7)
	updated, err = e.listings.Update(ctx, owner, l.ID, d)
	require.NoError(t, err)
	require.Len(t, updated.Photos, 7)

	detail, err := e.listings.Detail(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, detail.Photos, 7)
	assert.Equal(t, d.Photos[0], detail.Photos[0].URL)
	assert.True(t, detail.Photos[0].IsPrimary)
}

func TestMap_ReturnsPhotosAndHidesLapsedListings(t *testing.T) {
	e := newEnv(t)
	agent := e.user(t, "agent@test.dev", models.RoleAgent)
	admin := e.user(t, "admin@test.dev", models.RoleAdmin)
	ctx := context.Background()

	live, err := e.listings.Create(ctx, agent, draft("Live Loft", 250000))
	require.NoError(t, err)
	lapsed := draft("Lapsed Loft", 250000)
	past := time.Now().UTC().Add(-24 * time.Hour)
	lapsed.ExpiresAt = &past
	gone, err := e.listings.Create(ctx, agent, lapsed)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{live.ID, gone.ID} {
		_, err := e.admin.UpdateStatus(ctx, admin, id, "approved")
		require.NoError(t, err)
	}

	pins, err := e.listings.Map(ctx, query.Filters{})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, live.ID, pins[0].ID)
	assert.Len(t, pins[0].Photos, 6)
	assert.True(t, pins[0].Photos[0].IsPrimary)
}
