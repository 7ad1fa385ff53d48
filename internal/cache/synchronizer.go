// Package cache keeps named query results in memory and refreshes them when a
// mutation declares them stale. There is no TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vikasavnish/listinghub/internal/logging"
)

// ErrCleared is returned to a read whose entry was dropped by Clear mid-fetch.
var ErrCleared = errors.New("cache cleared")

const (
	refetchConcurrency = 8

	// DefaultMaxEntries bounds the entries kept under one name. Reads beyond it
	// evict the least recently read entry of that name.
	DefaultMaxEntries = 64
	// DefaultRefetchWindow is how recently an entry must have been read to be
	// refetched on invalidation. Older entries are dropped instead.
	DefaultRefetchWindow = 10 * time.Minute
)

type fetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value    any
	fresh    bool
	gen      uint64 // bumped on every invalidation
	fetch    fetchFunc
	lastRead time.Time
}

// Synchronizer owns every cached result set.
type Synchronizer struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	perName   map[string]int
	flights   singleflight.Group
	listeners []func(names []string)

	maxEntries    int
	refetchWindow time.Duration
	now           func() time.Time

	bus    Bus
	origin string
	log    logging.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithMaxEntries caps the entries kept per cache name.
func WithMaxEntries(n int) Option {
	return func(s *Synchronizer) { s.maxEntries = n }
}

// WithRefetchWindow sets how recently read an entry must be to be refetched eagerly.
func WithRefetchWindow(d time.Duration) Option {
	return func(s *Synchronizer) { s.refetchWindow = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

func New(bus Bus, log logging.Logger, opts ...Option) *Synchronizer {
	if bus == nil {
		bus = NopBus{}
	}
	s := &Synchronizer{
		entries:       make(map[Key]*entry),
		perName:       make(map[string]int),
		maxEntries:    DefaultMaxEntries,
		refetchWindow: DefaultRefetchWindow,
		now:           time.Now,
		bus:           bus,
		origin:        uuid.NewString(),
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached value for key, calling fetch when it is absent or stale.
// Concurrent callers for the same key share one fetch.
func Get[T any](ctx context.Context, s *Synchronizer, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.get(ctx, key, func(ctx context.Context) (any, error) { return fetch(ctx) })
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %s holds %T", key, v)
	}
	return out, nil
}

func (s *Synchronizer) get(ctx context.Context, key Key, fetch fetchFunc) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		e.lastRead = s.now()
	}
	if ok && e.fresh {
		v := e.value
		s.mu.Unlock()
		return v, nil
	}
	if !ok {
		s.makeRoomLocked(key.Name)
		e = &entry{lastRead: s.now()}
		s.entries[key] = e
		s.perName[key.Name]++
	}
	e.fetch = fetch
	gen := e.gen
	s.mu.Unlock()

	return s.load(ctx, key, e, gen)
}

// makeRoomLocked evicts the least recently read entries of name until one more fits.
func (s *Synchronizer) makeRoomLocked(name string) {
	if s.maxEntries <= 0 {
		return
	}
	for s.perName[name] >= s.maxEntries {
		var (
			oldest Key
			found  bool
			at     time.Time
		)
		for k, e := range s.entries {
			if k.Name != name {
				continue
			}
			if !found || e.lastRead.Before(at) {
				oldest, at, found = k, e.lastRead, true
			}
		}
		if !found {
			return
		}
		s.deleteLocked(oldest)
	}
}

func (s *Synchronizer) deleteLocked(k Key) {
	if _, ok := s.entries[k]; !ok {
		return
	}
	delete(s.entries, k)
	if s.perName[k.Name]--; s.perName[k.Name] <= 0 {
		delete(s.perName, k.Name)
	}
}

// load runs the entry's fetcher once per (key, generation). A result is stored only
// if no invalidation happened while it was being fetched.
func (s *Synchronizer) load(ctx context.Context, key Key, e *entry, gen uint64) (any, error) {
	v, err, _ := s.flights.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		s.mu.Lock()
		if s.entries[key] != e {
			s.mu.Unlock()
			return nil, ErrCleared
		}
		if e.fresh && e.gen == gen {
			v := e.value
			s.mu.Unlock()
			return v, nil
		}
		fetch := e.fetch
		s.mu.Unlock()

		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.entries[key] == e && e.gen == gen {
			e.value = v
			e.fresh = true
		}
		s.mu.Unlock()
		return v, nil
	})
	return v, err
}

// Invalidate marks every entry named by m's dependencies stale, refetches the
// recently read ones, publishes the event to other instances and then notifies
// listeners. User-scoped mutations only touch that user's entries.
// A refetch error leaves that entry stale so the next Get retries it.
func (s *Synchronizer) Invalidate(ctx context.Context, m Mutation) error {
	names := Dependencies(m)
	if len(names) == 0 {
		return fmt.Errorf("no cache dependencies for mutation %q", m.Kind)
	}
	scope := m.Scope()

	err := s.invalidateNames(ctx, names, scope)
	if pubErr := s.bus.Publish(ctx, Event{Origin: s.origin, Names: names, Scope: scope}); pubErr != nil {
		s.log.Warn(ctx, "publish invalidation failed", "mutation", m.Kind, "err", pubErr)
	}
	if err != nil {
		return fmt.Errorf("refetch after %s: %w", m.Kind, err)
	}
	return nil
}

// invalidateNames handles entries under names whose params equal scope, or all
// of them when scope is empty.
func (s *Synchronizer) invalidateNames(ctx context.Context, names []string, scope string) error {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	type job struct {
		key Key
		e   *entry
		gen uint64
	}
	var (
		jobs []job
		cold []Key
	)

	s.mu.Lock()
	cutoff := s.now().Add(-s.refetchWindow)
	for k, e := range s.entries {
		if _, ok := wanted[k.Name]; !ok {
			continue
		}
		if scope != "" && k.Params != scope {
			continue
		}
		e.fresh = false
		e.gen++
		if e.fetch == nil || e.lastRead.Before(cutoff) {
			cold = append(cold, k)
			continue
		}
		jobs = append(jobs, job{key: k, e: e, gen: e.gen})
	}
	for _, k := range cold {
		s.deleteLocked(k)
	}
	s.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(refetchConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			_, err := s.load(ctx, j.key, j.e, j.gen)
			if errors.Is(err, ErrCleared) {
				return nil
			}
			return err
		})
	}
	err := g.Wait()

	s.notify(names)
	return err
}

// OnInvalidate registers fn to be called with the invalidated names after each refetch.
func (s *Synchronizer) OnInvalidate(fn func(names []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Synchronizer) notify(names []string) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(names)
	}
}

// Clear drops every entry. Fetches in flight finish but are not stored.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[Key]*entry)
	s.perName = make(map[string]int)
}

// ClearMatching drops the entries whose params satisfy match, e.g. one user's favourites.
func (s *Synchronizer) ClearMatching(match func(Key) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if match(k) {
			s.deleteLocked(k)
		}
	}
}

// IsFresh reports whether key currently holds a fresh value.
func (s *Synchronizer) IsFresh(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.fresh
}

// Len returns the number of entries held under name.
func (s *Synchronizer) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perName[name]
}

// Listen applies invalidations published by other instances until ctx is done.
func (s *Synchronizer) Listen(ctx context.Context) error {
	return s.bus.Subscribe(ctx, func(ev Event) {
		if ev.Origin == s.origin {
			return
		}
		if err := s.invalidateNames(ctx, ev.Names, ev.Scope); err != nil {
			s.log.Warn(ctx, "refetch after remote invalidation failed", "names", ev.Names, "err", err)
		}
	})
}
