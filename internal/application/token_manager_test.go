package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
	"gitlab.com/fletera/api/facturify-gateway/pkg/crypto"
)

// noopLogger satisfies domain.Logger without output.
type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}
func (noopLogger) Fatal(context.Context, string, ...any) {}
func (l noopLogger) With(...any) domain.Logger           { return l }

// fakeStore is an in-memory stand-in for the shared cache. TTLs decay in real
// time, like Redis, and an expired entry reads as absent.
type fakeStore struct {
	mu         sync.Mutex
	token      string
	deadline   time.Time
	expiry     int64
	hasExpiry  bool
	storeCalls int
	failToken  error
	failTTL    error
	failStore  error
}

func (s *fakeStore) setToken(token string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.deadline = time.Now().Add(ttl)
}

func (s *fakeStore) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failToken != nil {
		return "", s.failToken
	}
	if s.token == "" || !time.Now().Before(s.deadline) {
		return "", ErrCacheMiss
	}
	return s.token, nil
}

func (s *fakeStore) TTL(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTTL != nil {
		return 0, s.failTTL
	}
	remaining := time.Until(s.deadline)
	if s.token == "" || remaining <= 0 {
		return 0, ErrCacheMiss
	}
	return remaining, nil
}

func (s *fakeStore) OriginalExpiry(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasExpiry {
		return 0, ErrCacheMiss
	}
	return s.expiry, nil
}

func (s *fakeStore) Store(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStore != nil {
		return s.failStore
	}
	s.storeCalls++
	s.token = cred.Token
	s.deadline = time.Now().Add(time.Duration(cred.ExpiresIn) * time.Second)
	s.expiry = cred.ExpiresIn
	s.hasExpiry = true
	return nil
}

// fakeGateway implements domain.AuthGateway with overridable behavior and
// call accounting.
type fakeGateway struct {
	mu            sync.Mutex
	obtainCalls   int
	refreshCalls  int
	refreshedWith []string
	obtainFn      func(ctx context.Context) (*domain.Credential, error)
	refreshFn     func(ctx context.Context, current string) (*domain.Credential, error)
	refreshed     chan string
}

func (g *fakeGateway) Obtain(ctx context.Context) (*domain.Credential, error) {
	g.mu.Lock()
	g.obtainCalls++
	fn := g.obtainFn
	g.mu.Unlock()
	if fn == nil {
		return shortCred("tok-short"), nil
	}
	return fn(ctx)
}

func (g *fakeGateway) Refresh(ctx context.Context, current string) (*domain.Credential, error) {
	g.mu.Lock()
	g.refreshCalls++
	g.refreshedWith = append(g.refreshedWith, current)
	fn := g.refreshFn
	ch := g.refreshed
	g.mu.Unlock()

	var cred *domain.Credential
	var err error
	if fn == nil {
		cred, err = longCred("tok-long"), nil
	} else {
		cred, err = fn(ctx, current)
	}
	if ch != nil {
		select {
		case ch <- current:
		default:
		}
	}
	return cred, err
}

func (g *fakeGateway) calls() (obtains, refreshes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.obtainCalls, g.refreshCalls
}

// fakeEvents records published lifecycle events.
type fakeEvents struct {
	mu     sync.Mutex
	events []domain.TokenEvent
	err    error
}

func (p *fakeEvents) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *event)
	return nil
}

func (p *fakeEvents) NatsConn() *nats.Conn { return nil }
func (p *fakeEvents) Close()               {}

func (p *fakeEvents) types() []domain.TokenEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TokenEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func shortCred(token string) *domain.Credential {
	return &domain.Credential{Token: token, ExpiresIn: 240, Kind: domain.CredentialInitial, IssuedAt: time.Now().UTC()}
}

func longCred(token string) *domain.Credential {
	return &domain.Credential{Token: token, ExpiresIn: 43200, Kind: domain.CredentialRefreshed, IssuedAt: time.Now().UTC()}
}

// newTestManager builds a TokenManager with millisecond-scale lifecycle
// timings so loop behavior is observable in tests.
func newTestManager(store domain.CredentialStore, gateway domain.AuthGateway, events domain.EventPublisher) *TokenManager {
	return &TokenManager{
		logger:             noopLogger{},
		store:              store,
		gateway:            gateway,
		events:             events,
		refreshBuffer:      40 * time.Millisecond,
		longLivedThreshold: 150 * time.Millisecond,
		registerDelay:      time.Millisecond,
		refreshSettle:      5 * time.Millisecond,
		errorCooldown:      10 * time.Millisecond,
		loopStop:           make(chan struct{}),
	}
}

type staticConfigProvider struct {
	cfg *config.Config
}

func (s staticConfigProvider) Get() *config.Config { return s.cfg }

func TestNewTokenManagerSnapshotsTimings(t *testing.T) {
	provider := staticConfigProvider{cfg: &config.Config{
		Facturify: config.FacturifyConfig{
			RefreshBufferSeconds:      60,
			LongLivedThresholdSeconds: 300,
			RegisterDelaySeconds:      5,
			RefreshSettleSeconds:      60,
			ErrorCooldownSeconds:      30,
		},
	}}

	tm := NewTokenManager(noopLogger{}, provider, &fakeStore{}, &fakeGateway{}, &fakeEvents{})

	assert.Equal(t, 60*time.Second, tm.refreshBuffer)
	assert.Equal(t, 300*time.Second, tm.longLivedThreshold)
	assert.Equal(t, 5*time.Second, tm.registerDelay)
	assert.Equal(t, 60*time.Second, tm.refreshSettle)
	assert.Equal(t, 30*time.Second, tm.errorCooldown)
}

func TestObtainStoresCredentialAndPublishesEvent(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{}
	events := &fakeEvents{}
	tm := newTestManager(store, gateway, events)

	cred, err := tm.Obtain(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cred)

	assert.Equal(t, "tok-short", store.currentToken())
	assert.Equal(t, 1, store.storeCalls)
	require.Len(t, events.events, 1)
	assert.Equal(t, domain.TokenEventObtained, events.events[0].Type)
	assert.Equal(t, crypto.Fingerprint("tok-short"), events.events[0].TokenFingerprint)
	assert.NotEqual(t, "tok-short", events.events[0].TokenFingerprint, "events must never carry the raw token")
}

func TestObtainSurfacesAuthErrorWithoutStoring(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{
		obtainFn: func(ctx context.Context) (*domain.Credential, error) {
			return nil, domain.NewAuthError(401, "invalid api key")
		},
	}
	tm := newTestManager(store, gateway, &fakeEvents{})

	_, err := tm.Obtain(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsAuthError(err))
	assert.Equal(t, 0, store.storeCalls)
}

func TestValidTokenCacheHitMakesNoProviderCalls(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-cached", 100*time.Second)
	gateway := &fakeGateway{}
	tm := newTestManager(store, gateway, &fakeEvents{})

	token, err := tm.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-cached", token)

	obtains, refreshes := gateway.calls()
	assert.Zero(t, obtains, "cache hit must not call the provider")
	assert.Zero(t, refreshes, "cache hit must not call the provider")
}

func TestValidTokenBootstrapsOnEmptyCache(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{}
	tm := newTestManager(store, gateway, &fakeEvents{})

	token, err := tm.ValidToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-long", token)

	obtains, refreshes := gateway.calls()
	assert.Equal(t, 1, obtains)
	assert.Equal(t, 1, refreshes)
	// The bootstrap refresh exchanges the token obtain just cached.
	require.NotEmpty(t, gateway.refreshedWith)
	assert.Equal(t, "tok-short", gateway.refreshedWith[0])
}

func TestRefreshAfterObtainLeavesRefreshedExpiry(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{}
	tm := newTestManager(store, gateway, &fakeEvents{})
	ctx := context.Background()

	_, err := tm.Obtain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(240), store.expiry)

	cred, err := tm.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CredentialRefreshed, cred.Kind)

	// The long-lived credential supersedes the short-lived one in the cache.
	assert.Equal(t, int64(43200), store.expiry)
	ttl, err := store.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, 43000*time.Second)
}

func TestRefreshWithEmptyCacheFallsBackToBootstrap(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{}
	events := &fakeEvents{}
	tm := newTestManager(store, gateway, events)

	cred, err := tm.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-long", cred.Token)

	obtains, refreshes := gateway.calls()
	assert.Equal(t, 1, obtains)
	assert.Equal(t, 1, refreshes)
	assert.Contains(t, events.types(), domain.TokenEventRefreshFallback)
}

func TestRefreshFallbackRunsExactlyOnce(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-stale", 100*time.Second)
	gateway := &fakeGateway{
		refreshFn: func(ctx context.Context, current string) (*domain.Credential, error) {
			return nil, domain.NewTokenInvalidError(401, "token is stale")
		},
	}
	events := &fakeEvents{}
	tm := newTestManager(store, gateway, events)

	_, err := tm.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTokenInvalid(err), "second rejection surfaces, not loops")

	obtains, refreshes := gateway.calls()
	assert.Equal(t, 1, obtains, "exactly one fallback obtain")
	assert.Equal(t, 2, refreshes, "original refresh plus the fallback's refresh, no further recursion")

	types := events.types()
	fallbacks := 0
	for _, typ := range types {
		if typ == domain.TokenEventRefreshFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
	assert.Contains(t, types, domain.TokenEventRefreshFailed)
}

func TestRefreshDoesNotFallBackOnOtherErrors(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-current", 100*time.Second)
	gateway := &fakeGateway{
		refreshFn: func(ctx context.Context, current string) (*domain.Credential, error) {
			return nil, domain.NewTransientTransportError("refresh_token", errors.New("connection reset"))
		},
	}
	events := &fakeEvents{}
	tm := newTestManager(store, gateway, events)

	_, err := tm.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsTransientTransport(err))

	obtains, _ := gateway.calls()
	assert.Zero(t, obtains, "only a token rejection triggers the fallback")
	assert.Contains(t, events.types(), domain.TokenEventRefreshFailed)
}

func TestStatusReportsSnapshotWithoutProviderCalls(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{}
	tm := newTestManager(store, gateway, &fakeEvents{})
	ctx := context.Background()

	status, err := tm.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.HasToken)
	assert.Nil(t, status.OriginalExpiry)

	store.setToken("tok-cached", 30*time.Second)
	store.mu.Lock()
	store.expiry = 240
	store.hasExpiry = true
	store.mu.Unlock()

	status, err = tm.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.HasToken)
	assert.GreaterOrEqual(t, status.TTLSeconds, int64(28))
	assert.LessOrEqual(t, status.TTLSeconds, int64(30))
	require.NotNil(t, status.OriginalExpiry)
	assert.Equal(t, int64(240), *status.OriginalExpiry)

	obtains, refreshes := gateway.calls()
	assert.Zero(t, obtains)
	assert.Zero(t, refreshes)
}

func TestRefreshLoopBootstrapsWhenCacheEmpty(t *testing.T) {
	store := &fakeStore{}
	gateway := &fakeGateway{refreshed: make(chan string, 4)}
	tm := newTestManager(store, gateway, &fakeEvents{})

	tm.StartRefreshLoop(context.Background())
	defer tm.StopRefreshLoop()

	select {
	case <-gateway.refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not bootstrap an empty cache in time")
	}
	assert.Equal(t, "tok-long", store.currentToken())
}

func TestRefreshLoopRefreshesShortLivedTokenImmediately(t *testing.T) {
	store := &fakeStore{}
	// 80ms is below the 150ms threshold: short-lived, refresh with no sleep.
	store.setToken("tok-short", 80*time.Millisecond)
	gateway := &fakeGateway{refreshed: make(chan string, 4)}
	tm := newTestManager(store, gateway, &fakeEvents{})

	start := time.Now()
	tm.StartRefreshLoop(context.Background())
	defer tm.StopRefreshLoop()

	select {
	case current := <-gateway.refreshed:
		assert.Equal(t, "tok-short", current)
		assert.Less(t, time.Since(start), 100*time.Millisecond, "short-lived token must refresh without sleeping")
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not refresh a short-lived token in time")
	}
}

func TestRefreshLoopSleepsUntilBufferForLongLivedToken(t *testing.T) {
	store := &fakeStore{}
	// 250ms TTL with a 150ms threshold and 40ms buffer: long-lived, the loop
	// should sleep roughly TTL-buffer (~210ms) before refreshing.
	store.setToken("tok-long-lived", 250*time.Millisecond)
	gateway := &fakeGateway{refreshed: make(chan string, 4)}
	tm := newTestManager(store, gateway, &fakeEvents{})

	start := time.Now()
	tm.StartRefreshLoop(context.Background())
	defer tm.StopRefreshLoop()

	time.Sleep(50 * time.Millisecond)
	_, refreshes := gateway.calls()
	assert.Zero(t, refreshes, "long-lived token must not refresh before the buffer window")

	select {
	case <-gateway.refreshed:
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond, "refresh fired before the sleep elapsed")
		assert.Less(t, elapsed, time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not wake up to refresh the long-lived token")
	}
}

func TestRefreshLoopCoolsDownAndRetriesAfterFailure(t *testing.T) {
	store := &fakeStore{}
	var mu sync.Mutex
	failures := 2
	gateway := &fakeGateway{refreshed: make(chan string, 4)}
	gateway.obtainFn = func(ctx context.Context) (*domain.Credential, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, domain.NewTransientTransportError("obtain_token", errors.New("provider down"))
		}
		return shortCred("tok-short"), nil
	}
	tm := newTestManager(store, gateway, &fakeEvents{})

	tm.StartRefreshLoop(context.Background())
	defer tm.StopRefreshLoop()

	select {
	case <-gateway.refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not recover after transient obtain failures")
	}

	obtains, _ := gateway.calls()
	assert.GreaterOrEqual(t, obtains, 3, "loop must retry the same state after each cooldown")
}

func TestStopRefreshLoopInterruptsLongSleep(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-long-lived", 10*time.Second)
	tm := newTestManager(store, &fakeGateway{}, &fakeEvents{})

	tm.StartRefreshLoop(context.Background())
	time.Sleep(30 * time.Millisecond) // let the loop enter its long sleep

	done := make(chan struct{})
	go func() {
		tm.StopRefreshLoop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopRefreshLoop did not interrupt the loop's sleep")
	}
}

func TestStartRefreshLoopTwiceRunsSingleLoop(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-long-lived", 10*time.Second)
	tm := newTestManager(store, &fakeGateway{}, &fakeEvents{})

	tm.StartRefreshLoop(context.Background())
	tm.StartRefreshLoop(context.Background())

	done := make(chan struct{})
	go func() {
		tm.StopRefreshLoop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopRefreshLoop hung after a duplicate StartRefreshLoop")
	}
}

func TestContextCancellationStopsRefreshLoop(t *testing.T) {
	store := &fakeStore{}
	store.setToken("tok-long-lived", 10*time.Second)
	tm := newTestManager(store, &fakeGateway{}, &fakeEvents{})

	ctx, cancel := context.WithCancel(context.Background())
	tm.StartRefreshLoop(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		tm.loopWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not exit on context cancellation")
	}
}

func TestPublishEventFailureDoesNotFailLifecycle(t *testing.T) {
	store := &fakeStore{}
	events := &fakeEvents{err: errors.New("broker unavailable")}
	tm := newTestManager(store, &fakeGateway{}, events)

	cred, err := tm.Obtain(context.Background())
	require.NoError(t, err, "event publishing is best-effort")
	assert.Equal(t, "tok-short", cred.Token)
}
