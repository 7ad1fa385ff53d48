package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/store"
	"github.com/vikasavnish/listinghub/internal/testdb"
)

// recordingNotifier keeps every notice it is given.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
	users   []uuid.UUID
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	r.users = append(r.users, userID)
}

func (r *recordingNotifier) all() []models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notice(nil), r.notices...)
}

type env struct {
	data      *store.Service
	cache     *cache.Synchronizer
	notifier  *recordingNotifier
	listings  *ListingService
	admin     *AdminService
	favorites *FavoriteService
	auth      AuthService
}

var testListingsConfig = config.ListingsConfig{MinPhotos: 6, MaxPhotos: 10}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.Open(t)
	log := logging.Discard()
	data := store.NewGormService(db)
	c := cache.New(nil, log)
	n := &recordingNotifier{}

	return &env{
		data:      data,
		cache:     c,
		notifier:  n,
		listings:  NewListingService(data, c, testListingsConfig, log),
		admin:     NewAdminService(data.Listings, c, log),
		favorites: NewFavoriteService(data.Favourites, c, n, log),
		auth: NewAuthService(data.Users, NewMemoryRevocations(), config.JWTConfig{
			SecretKey: []byte("test-secret"),
			TokenTTL:  time.Hour,
		}, log),
	}
}

func (e *env) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "T", LastName: string(role), Role: role}
	require.NoError(t, e.data.Users.Insert(context.Background(), u))
	return u
}

func (e *env) listing(t *testing.T, agent *models.User, title string, price int, status models.ListingStatus) models.Listing {
	t.Helper()
	l := models.Listing{AgentID: agent.ID, Title: title, PriceEUR: price, Bedrooms: 2, Status: status}
	require.NoError(t, e.data.Listings.Insert(context.Background(), &l))
	return l
}

func sessionFor(u *models.User) *Session {
	return &Session{UserID: u.ID, Role: u.Role}
}

func photos(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "https://img.example/" + uuid.NewString() + ".jpg"
	}
	return out
}

func draft(title string, price int) models.ListingDraft {
	return models.ListingDraft{Title: title, PriceEUR: price, Bedrooms: 2, Photos: photos(6)}
}
