package auth

import (
	"context"
	"sync"
	"time"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/logger"
	"github.com/andrewpaige1/tarjetas-api/models"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

// Source loads the user behind a principal. LocalUser is the fast path and
// may return nil without error when the user is unknown locally.
type Source interface {
	LocalUser(ctx context.Context, p Principal) (*models.User, error)
	VerifyUser(ctx context.Context, p Principal) (*models.User, error)
}

type cacheEntry struct {
	user *models.User
	at   time.Time
}

// Cache memoizes the user of each subject for a short TTL. Concurrent
// lookups for one subject share a single fetch.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
	// gen is bumped by every explicit write so an in-flight fetch that
	// started earlier does not overwrite it.
	gen   map[string]uint64
	group singleflight.Group
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

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

func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logger.Nop(),
		entries: make(map[string]cacheEntry),
		gen:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("service", "AuthCache")
	return c
}

// GetUser returns the user of the request principal, or nil.
func (c *Cache) GetUser(ctx context.Context) *models.User {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return nil
	}

	c.mu.Lock()
	e, hit := c.entries[p.Subject]
	if hit && c.now().Sub(e.at) < c.ttl {
		c.mu.Unlock()
		return e.user
	}
	gen := c.gen[p.Subject]
	c.mu.Unlock()

	principal := *p
	v, _, _ := c.group.Do(p.Subject, func() (interface{}, error) {
		user := c.fetch(context.WithoutCancel(ctx), principal)
		c.store(principal.Subject, user, gen)
		return user, nil
	})
	user, _ := v.(*models.User)
	return user
}

// CurrentUser adapts the cache to cards.Identity.
func (c *Cache) CurrentUser(ctx context.Context) (*models.User, error) {
	if user := c.GetUser(ctx); user != nil {
		return user, nil
	}
	return nil, cards.ErrNotAuthenticated
}

// Refresh skips the local lookup, verifies the principal with the identity
// provider and stores the result.
func (c *Cache) Refresh(ctx context.Context) *models.User {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return nil
	}
	user, err := c.source.VerifyUser(ctx, *p)
	if err != nil {
		c.log.Warn("Refresh: verification failed", "subject", p.Subject, "error", err)
		user = nil
	}
	c.SetUser(p.Subject, user)
	return user
}

// SetUser overwrites the entry for subject. A nil user records "signed out".
func (c *Cache) SetUser(subject string, user *models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[subject]++
	c.entries[subject] = cacheEntry{user: user, at: c.now()}
}

func (c *Cache) ClearCache(subject string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[subject]++
	delete(c.entries, subject)
}

func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for subject := range c.entries {
		c.gen[subject]++
	}
	c.entries = make(map[string]cacheEntry)
}

func (c *Cache) store(subject string, user *models.User, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[subject] != gen {
		return
	}
	c.entries[subject] = cacheEntry{user: user, at: c.now()}
}

// fetch never fails: errors are logged and reported as no user.
func (c *Cache) fetch(ctx context.Context, p Principal) *models.User {
	if c.source == nil {
		return nil
	}
	user, err := c.source.LocalUser(ctx, p)
	if err != nil {
		c.log.Debug("GetUser: local lookup failed", "subject", p.Subject, "error", err)
	}
	if err == nil && user != nil {
		return user
	}

	user, err = c.source.VerifyUser(ctx, p)
	if err != nil {
		c.log.Warn("GetUser: verification failed", "subject", p.Subject, "error", err)
		return nil
	}
	return user
}
