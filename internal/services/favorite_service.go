package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/notify"
	"github.com/vikasavnish/listinghub/internal/query"
	"github.com/vikasavnish/listinghub/internal/store"
)

type favoriteKey struct {
	user    uuid.UUID
	listing uuid.UUID
}

// favoriteFlight is the state of one (user, listing) while a write is outstanding.
// local is what the user sees; confirmed is what the data service holds.
type favoriteFlight struct {
	local     bool
	confirmed bool
	views     map[cache.FavoritesView]struct{}
	err       error
	done      chan struct{}
}

type FavoriteService struct {
	favs     store.Table[models.Favorite]
	cache    *cache.Synchronizer
	notifier notify.Notifier
	log      logging.Logger

	mu      sync.Mutex
	flights map[favoriteKey]*favoriteFlight
}

func NewFavoriteService(favs store.Table[models.Favorite], c *cache.Synchronizer, notifier notify.Notifier, log logging.Logger) *FavoriteService {
	return &FavoriteService{
		favs:     favs,
		cache:    c,
		notifier: notifier,
		log:      log,
		flights:  make(map[favoriteKey]*favoriteFlight),
	}
}

// ForgetUser drops the user's cached favourites, e.g. after sign-out.
func (s *FavoriteService) ForgetUser(userID uuid.UUID) {
	params := cache.UserScope(userID)
	s.cache.ClearMatching(func(k cache.Key) bool { return k.Params == params })
}

// IDs returns the ids of every listing the user has favourited, newest first.
func (s *FavoriteService) IDs(ctx context.Context, session *Session) ([]uuid.UUID, error) {
	if session == nil {
		return nil, ErrSignInRequired
	}
	key := cache.NewKey(cache.FavoriteIDs, cache.UserParams(session.UserID))
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) ([]uuid.UUID, error) {
		q := query.Where(query.Eq("user_id", session.UserID)).OrderedBy(query.OrderBy{Column: "created_at", Desc: true})
		rows, err := store.Collect(s.favs.Select(ctx, q))
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, f := range rows {
			ids = append(ids, f.ListingID)
		}
		return ids, nil
	})
}

// IsFavorited reports whether the user has favourited the listing.
func (s *FavoriteService) IsFavorited(ctx context.Context, session *Session, listingID uuid.UUID) (bool, error) {
	if session == nil {
		return false, ErrSignInRequired
	}
	key := cache.NewKey(cache.IsFavorited(listingID), cache.UserParams(session.UserID))
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) (bool, error) {
		return store.Exists(ctx, s.favs, query.Where(
			query.Eq("user_id", session.UserID),
			query.Eq("listing_id", listingID),
		))
	})
}

// List returns the user's favourites with their listings, for the given view's cache.
func (s *FavoriteService) List(ctx context.Context, session *Session, view cache.FavoritesView) ([]models.Favorite, error) {
	if session == nil {
		return nil, ErrSignInRequired
	}
	key := cache.NewKey(view.CacheName(), cache.UserParams(session.UserID))
	return cache.Get(ctx, s.cache, key, func(ctx context.Context) ([]models.Favorite, error) {
		q := query.Where(query.Eq("user_id", session.UserID)).
			OrderedBy(query.OrderBy{Column: "created_at", Desc: true}).
			Joining("Listing")
		return store.Collect(s.favs.Select(ctx, q))
	})
}

// Toggle flips the favourite state of a listing and returns the state the user should see.
//
// The flip is local first. One write per (user, listing) is in flight at a time; toggles
// that arrive meanwhile only flip the intent and wait, and the running flight keeps
// writing until the data service matches the last intent. On failure the state reverts
// to the last confirmed value and an error notice is sent.
func (s *FavoriteService) Toggle(ctx context.Context, session *Session, listingID uuid.UUID, view cache.FavoritesView) (bool, error) {
	if session == nil {
		s.notifier.Notify(ctx, uuid.Nil, models.Notice{
			Level:   notify.LevelWarning,
			Title:   "Sign in required",
			Message: "Sign in to save listings to your favorites",
		})
		return false, ErrSignInRequired
	}
	key := favoriteKey{user: session.UserID, listing: listingID}

	if f, ok := s.join(key, view); ok {
		return s.await(ctx, f)
	}

	current, err := s.IsFavorited(ctx, session, listingID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if f, ok := s.flights[key]; ok {
		// another toggle started while we were reading
		f.local = !f.local
		f.views[view] = struct{}{}
		s.mu.Unlock()
		return s.await(ctx, f)
	}
	f := &favoriteFlight{
		local:     !current,
		confirmed: current,
		views:     map[cache.FavoritesView]struct{}{view: {}},
		done:      make(chan struct{}),
	}
	s.flights[key] = f
	s.mu.Unlock()

	// Other toggles may be waiting on this flight, so it outlives the caller.
	s.reconcile(context.WithoutCancel(ctx), key, f)
	return s.await(ctx, f)
}

// join flips the intent of an in-flight toggle.
func (s *FavoriteService) join(key favoriteKey, view cache.FavoritesView) (*favoriteFlight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[key]
	if !ok {
		return nil, false
	}
	f.local = !f.local
	f.views[view] = struct{}{}
	return f, true
}

func (s *FavoriteService) await(ctx context.Context, f *favoriteFlight) (bool, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.local, f.err
}

func (s *FavoriteService) reconcile(ctx context.Context, key favoriteKey, f *favoriteFlight) {
	defer close(f.done)

	for {
		s.mu.Lock()
		want := f.local
		if want == f.confirmed {
			delete(s.flights, key)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		if err := s.write(ctx, key, want); err != nil {
			s.mu.Lock()
			f.local = f.confirmed
			f.err = err
			delete(s.flights, key)
			s.mu.Unlock()

			s.log.Warn(ctx, "favorite toggle failed", "user_id", key.user, "listing_id", key.listing, "err", err)
			s.notifier.Notify(ctx, key.user, models.Notice{
				Level:   notify.LevelError,
				Title:   "Could not update favorites",
				Message: err.Error(),
			})
			return
		}

		s.mu.Lock()
		f.confirmed = want
		views := make([]cache.FavoritesView, 0, len(f.views))
		for v := range f.views {
			views = append(views, v)
		}
		s.mu.Unlock()

		// Still registered, so toggles arriving now join this flight.
		for _, v := range views {
			if err := s.cache.Invalidate(ctx, cache.FavoriteToggle(v, key.user, key.listing)); err != nil {
				s.log.Warn(ctx, "cache refetch failed", "mutation", cache.FavoriteToggled, "err", err)
			}
		}
	}
}

func (s *FavoriteService) write(ctx context.Context, key favoriteKey, favorited bool) error {
	if favorited {
		return s.favs.Insert(ctx, &models.Favorite{UserID: key.user, ListingID: key.listing})
	}
	// Zero rows deleted means it is already gone, which is the state we want.
	_, err := s.favs.Delete(ctx, query.Where(
		query.Eq("user_id", key.user),
		query.Eq("listing_id", key.listing),
	))
	return err
}
