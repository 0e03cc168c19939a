// Package deckcache keeps a per-user snapshot of deck summaries. Reads are
// served from the snapshot; stale snapshots are returned while a refresh
// runs in the background.
package deckcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/logger"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDedupe = 2 * time.Second
	DefaultMaxAge = 5 * time.Minute
)

type Fetcher interface {
	DeckSummaries(ctx context.Context, userID string) ([]cards.DeckSummary, error)
}

// Notifier tells other instances that a user's decks changed.
type Notifier interface {
	Publish(ctx context.Context, userID string) error
}

type Snapshot struct {
	Decks     []cards.DeckSummary `json:"decks"`
	IsLoading bool                `json:"is_loading"`
	Err       error               `json:"-"`
	FetchedAt time.Time           `json:"fetched_at"`
}

type entry struct {
	decks     []cards.DeckSummary
	hasData   bool
	err       error
	fetchedAt time.Time
	stale     bool
	loading   bool
}

type Cache struct {
	fetcher  Fetcher
	notifier Notifier
	dedupe   time.Duration
	maxAge   time.Duration
	now      func() time.Time
	log      *logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	gens    map[string]uint64
	group   singleflight.Group
	bg      sync.WaitGroup
}

type Option func(*Cache)

func WithDedupe(d time.Duration) Option { return func(c *Cache) { c.dedupe = d } }

// WithMaxAge sets how long a snapshot is served before it counts as stale.
// Zero disables age based staleness.
func WithMaxAge(d time.Duration) Option { return func(c *Cache) { c.maxAge = d } }

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

func WithNotifier(n Notifier) Option { return func(c *Cache) { c.notifier = n } }

func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		dedupe:  DefaultDedupe,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
		log:     logger.Nop(),
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("service", "DeckCache")
	return c
}

// Get returns the user's decks. Without data it fetches synchronously; with
// stale data it returns that data flagged IsLoading and refreshes in the
// background.
func (c *Cache) Get(ctx context.Context, userID string) Snapshot {
	c.mu.Lock()
	e := c.entries[userID]
	if e == nil || !e.hasData {
		c.mu.Unlock()
		return c.fetch(ctx, userID)
	}
	if c.maxAge > 0 && c.now().Sub(e.fetchedAt) >= c.maxAge {
		e.stale = true
	}
	snap := e.snapshot()
	if !e.stale {
		c.mu.Unlock()
		return snap
	}
	snap.IsLoading = true
	if !e.loading {
		e.loading = true
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			c.fetch(context.WithoutCancel(ctx), userID)
		}()
	}
	c.mu.Unlock()
	return snap
}

// Revalidate refreshes unless the last fetch is within the dedupe window.
func (c *Cache) Revalidate(ctx context.Context, userID string) Snapshot {
	c.mu.Lock()
	e := c.entries[userID]
	if e != nil && e.hasData && c.now().Sub(e.fetchedAt) < c.dedupe {
		snap := e.snapshot()
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()
	return c.fetch(ctx, userID)
}

// Mutate refreshes right away after a write and tells other instances. A
// refresh already in flight is not reused since it may predate the write.
func (c *Cache) Mutate(ctx context.Context, userID string) Snapshot {
	c.mu.Lock()
	c.gens[userID]++
	c.mu.Unlock()

	snap := c.fetch(ctx, userID)
	if c.notifier != nil {
		if err := c.notifier.Publish(ctx, userID); err != nil {
			c.log.Warn("Mutate: publish failed", "user", userID, "error", err)
		}
	}
	return snap
}

// Invalidate marks the snapshot stale; the next Get refreshes it.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[userID]; e != nil {
		e.stale = true
	}
}

// IdentityChanged drops everything known about the user, on sign-in and
// sign-out.
func (c *Cache) IdentityChanged(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	delete(c.entries, userID)
}

// Wait blocks until background refreshes finish.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) fetch(ctx context.Context, userID string) Snapshot {
	c.mu.Lock()
	gen := c.gens[userID]
	c.mu.Unlock()

	key := fmt.Sprintf("%s#%d", userID, gen)
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		decks, err := c.fetcher.DeckSummaries(ctx, userID)
		if err != nil {
			c.log.Warn("DeckSummaries failed", "user", userID, "error", err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gens[userID] != gen {
			// superseded by a mutation or identity change
			fresh := &entry{decks: decks, hasData: err == nil, err: err, fetchedAt: c.now()}
			return fresh.snapshot(), nil
		}
		e := c.entries[userID]
		if e == nil {
			e = &entry{}
			c.entries[userID] = e
		}
		e.loading = false
		e.fetchedAt = c.now()
		e.err = err
		if err == nil {
			e.decks = decks
			e.hasData = true
			e.stale = false
		}
		return e.snapshot(), nil
	})
	snap, _ := v.(Snapshot)
	return snap
}

func (e *entry) snapshot() Snapshot {
	decks := e.decks
	if decks == nil {
		decks = []cards.DeckSummary{}
	}
	return Snapshot{Decks: decks, Err: e.err, FetchedAt: e.fetchedAt}
}
