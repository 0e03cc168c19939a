package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrewpaige1/tarjetas-api/cards"
	"github.com/andrewpaige1/tarjetas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	local     *models.User
	localErr  error
	verified  *models.User
	verifyErr error
	release   chan struct{}

	localCalls  atomic.Int32
	verifyCalls atomic.Int32
}

func (f *fakeSource) LocalUser(ctx context.Context, p Principal) (*models.User, error) {
	f.localCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.local, f.localErr
}

func (f *fakeSource) VerifyUser(ctx context.Context, p Principal) (*models.User, error) {
	f.verifyCalls.Add(1)
	return f.verified, f.verifyErr
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func signedIn(subject string) context.Context {
	return WithPrincipal(context.Background(), &Principal{Subject: subject})
}

func TestGetUserMemoizesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{local: &models.User{ID: "u1", Auth0ID: "auth0|a"}}
	cache := NewCache(src, WithClock(clock.Now))
	ctx := signedIn("auth0|a")

	assert.Equal(t, "u1", cache.GetUser(ctx).ID)
	clock.Advance(29 * time.Second)
	assert.Equal(t, "u1", cache.GetUser(ctx).ID)
	assert.EqualValues(t, 1, src.localCalls.Load())

	clock.Advance(2 * time.Second)
	assert.Equal(t, "u1", cache.GetUser(ctx).ID)
	assert.EqualValues(t, 2, src.localCalls.Load())
	assert.Zero(t, src.verifyCalls.Load())
}

func TestGetUserCustomTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{local: &models.User{ID: "u1"}}
	cache := NewCache(src, WithClock(clock.Now), WithTTL(time.Second))
	ctx := signedIn("auth0|a")

	cache.GetUser(ctx)
	clock.Advance(1500 * time.Millisecond)
	cache.GetUser(ctx)
	assert.EqualValues(t, 2, src.localCalls.Load())
}

func TestGetUserFallsBackToVerification(t *testing.T) {
	src := &fakeSource{
		localErr: errors.New("db down"),
		verified: &models.User{ID: "u2"},
	}
	cache := NewCache(src)

	user := cache.GetUser(signedIn("auth0|b"))
	require.NotNil(t, user)
	assert.Equal(t, "u2", user.ID)
	assert.EqualValues(t, 1, src.verifyCalls.Load())
}

func TestGetUserErrorMeansNoUser(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{verifyErr: errors.New("provider unreachable")}
	cache := NewCache(src, WithClock(clock.Now))
	ctx := signedIn("auth0|c")

	assert.Nil(t, cache.GetUser(ctx))
	assert.Nil(t, cache.GetUser(ctx))
	assert.EqualValues(t, 1, src.verifyCalls.Load())

	_, err := cache.CurrentUser(ctx)
	assert.ErrorIs(t, err, cards.ErrNotAuthenticated)
}

func TestSetUserNilIsSeenImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{local: &models.User{ID: "u1"}}
	cache := NewCache(src, WithClock(clock.Now))
	ctx := signedIn("auth0|a")

	require.NotNil(t, cache.GetUser(ctx))

	cache.SetUser("auth0|a", nil)
	clock.Advance(time.Second)
	assert.Nil(t, cache.GetUser(ctx))
	assert.EqualValues(t, 1, src.localCalls.Load())

	cache.SetUser("auth0|a", &models.User{ID: "u9"})
	assert.Equal(t, "u9", cache.GetUser(ctx).ID)
}

func TestClearCacheForcesFetch(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "u1"}}
	cache := NewCache(src)
	ctx := signedIn("auth0|a")

	cache.GetUser(ctx)
	cache.ClearCache("auth0|a")
	cache.GetUser(ctx)
	assert.EqualValues(t, 2, src.localCalls.Load())

	cache.ClearAll()
	cache.GetUser(ctx)
	assert.EqualValues(t, 3, src.localCalls.Load())
}

func TestGetUserSharesInFlightFetch(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "u1"}, release: make(chan struct{})}
	cache := NewCache(src)
	ctx := signedIn("auth0|a")

	const callers = 20
	results := make([]*models.User, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.GetUser(ctx)
		}(i)
	}

	require.Eventually(t, func() bool { return src.localCalls.Load() == 1 }, time.Second, time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.EqualValues(t, 1, src.localCalls.Load())
	for _, u := range results {
		require.NotNil(t, u)
		assert.Equal(t, "u1", u.ID)
	}
}

func TestSetUserDuringFetchWins(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "stale"}, release: make(chan struct{})}
	cache := NewCache(src)
	ctx := signedIn("auth0|a")

	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.GetUser(ctx)
	}()
	require.Eventually(t, func() bool { return src.localCalls.Load() == 1 }, time.Second, time.Millisecond)

	cache.SetUser("auth0|a", nil)
	close(src.release)
	<-done

	assert.Nil(t, cache.GetUser(ctx))
}

func TestGetUserWithoutPrincipal(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "u1"}}
	cache := NewCache(src)

	assert.Nil(t, cache.GetUser(context.Background()))
	assert.Zero(t, src.localCalls.Load())
}

func TestSubjectsAreIsolated(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "u1"}}
	cache := NewCache(src)

	cache.GetUser(signedIn("auth0|a"))
	cache.SetUser("auth0|b", nil)
	assert.NotNil(t, cache.GetUser(signedIn("auth0|a")))
	assert.Nil(t, cache.GetUser(signedIn("auth0|b")))
}

func TestRefreshVerifies(t *testing.T) {
	src := &fakeSource{local: &models.User{ID: "old"}, verified: &models.User{ID: "new"}}
	cache := NewCache(src)
	ctx := signedIn("auth0|a")

	assert.Equal(t, "old", cache.GetUser(ctx).ID)
	assert.Equal(t, "new", cache.Refresh(ctx).ID)
	assert.Equal(t, "new", cache.GetUser(ctx).ID)
}
