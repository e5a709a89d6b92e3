package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/metrics"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
	"gitlab.com/fletera/api/facturify-gateway/pkg/crypto"
	"gitlab.com/fletera/api/facturify-gateway/pkg/safego"
)

// ErrCacheMiss signals that no credential is present in the shared cache.
// Store adapters return it so callers can tell "no token" apart from a cache
// failure.
var ErrCacheMiss = errors.New("credential not found in cache")

// TokenManager owns the provider credential lifecycle: it obtains short-lived
// tokens, exchanges them for long-lived ones, keeps the active credential in
// the shared cache, and runs the background loop that refreshes it before
// expiry. It is the only writer of the cached credential; everything else
// reads through ValidToken.
//
// The composition root constructs exactly one TokenManager per process, which
// is what guarantees a single refresh loop. Concurrent ValidToken callers that
// hit an empty cache may each run the bootstrap sequence; that race is left
// unsynchronized. The provider issues tokens idempotently and the last cache
// write wins, so the cost is a brief double-obtain, not a correctness
// problem.
type TokenManager struct {
	logger  domain.Logger
	store   domain.CredentialStore
	gateway domain.AuthGateway
	events  domain.EventPublisher

	// Lifecycle timings, resolved from config at construction.
	refreshBuffer      time.Duration // proactive-refresh safety margin
	longLivedThreshold time.Duration // below this a token counts as short-lived
	registerDelay      time.Duration // obtain → refresh settle time during bootstrap
	refreshSettle      time.Duration // pause after a loop-triggered refresh
	errorCooldown      time.Duration // loop backoff after a failed iteration

	// Background refresh loop state.
	loopMu      sync.Mutex
	loopStarted bool
	loopStopped bool
	loopStop    chan struct{}
	loopWg      sync.WaitGroup
}

// NewTokenManager creates a TokenManager. Lifecycle timings are snapshotted
// from the current configuration.
func NewTokenManager(
	logger domain.Logger,
	cfgProvider config.Provider,
	store domain.CredentialStore,
	gateway domain.AuthGateway,
	events domain.EventPublisher,
) *TokenManager {
	fCfg := cfgProvider.Get().Facturify
	return &TokenManager{
		logger:             logger,
		store:              store,
		gateway:            gateway,
		events:             events,
		refreshBuffer:      time.Duration(fCfg.RefreshBufferSeconds) * time.Second,
		longLivedThreshold: time.Duration(fCfg.LongLivedThresholdSeconds) * time.Second,
		registerDelay:      time.Duration(fCfg.RegisterDelaySeconds) * time.Second,
		refreshSettle:      time.Duration(fCfg.RefreshSettleSeconds) * time.Second,
		errorCooldown:      time.Duration(fCfg.ErrorCooldownSeconds) * time.Second,
		loopStop:           make(chan struct{}),
	}
}

// Obtain exchanges the configured API credentials for a fresh short-lived
// token and writes it through to the cache. A credential rejection surfaces
// as domain.AuthError and is never retried here; someone has to fix the key.
func (tm *TokenManager) Obtain(ctx context.Context) (*domain.Credential, error) {
	cred, err := tm.gateway.Obtain(ctx)
	if err != nil {
		metrics.IncrementTokenObtain("failure")
		tm.logger.Error(ctx, "Failed to obtain provider token", "error", err.Error())
		return nil, err
	}

	if err := tm.store.Store(ctx, cred); err != nil {
		metrics.IncrementTokenObtain("failure")
		return nil, fmt.Errorf("store obtained credential: %w", err)
	}

	metrics.IncrementTokenObtain("success")
	metrics.ObserveTokenTTL(float64(cred.ExpiresIn))
	tm.logger.Info(ctx, "Obtained initial provider token",
		"expires_in_seconds", cred.ExpiresIn,
		"token_fingerprint", crypto.Fingerprint(cred.Token),
	)
	tm.publishEvent(ctx, &domain.TokenEvent{
		Type:             domain.TokenEventObtained,
		Kind:             cred.Kind,
		ExpiresInSeconds: cred.ExpiresIn,
		TokenFingerprint: crypto.Fingerprint(cred.Token),
	})
	return cred, nil
}

// Refresh exchanges the cached token for a long-lived one. When the provider
// rejects the cached token (domain.TokenInvalidError), it falls back to a
// full obtain-then-refresh sequence exactly once before surfacing failure.
// An empty cache counts as an invalid token for fallback purposes.
func (tm *TokenManager) Refresh(ctx context.Context) (*domain.Credential, error) {
	return tm.refresh(ctx, true)
}

// refresh is Refresh with the fallback toggle exposed. The bootstrap sequence
// calls it with allowFallback=false: bootstrap already is obtain-then-refresh,
// so a nested fallback would loop.
func (tm *TokenManager) refresh(ctx context.Context, allowFallback bool) (*domain.Credential, error) {
	current, err := tm.store.Token(ctx)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return nil, fmt.Errorf("read cached credential: %w", err)
	}
	if current == "" {
		if !allowFallback {
			metrics.IncrementTokenRefresh("failure")
			return nil, domain.NewTokenInvalidError(0, "no cached token to refresh")
		}
		tm.logger.Warn(ctx, "No cached token to refresh, bootstrapping a new credential")
		return tm.runFallback(ctx, "cache_empty")
	}

	cred, err := tm.gateway.Refresh(ctx, current)
	if err != nil {
		if domain.IsTokenInvalid(err) && allowFallback {
			tm.logger.Warn(ctx, "Provider rejected cached token, falling back to obtain-then-refresh", "error", err.Error())
			return tm.runFallback(ctx, err.Error())
		}
		metrics.IncrementTokenRefresh("failure")
		tm.logger.Error(ctx, "Failed to refresh provider token", "error", err.Error())
		tm.publishEvent(ctx, &domain.TokenEvent{
			Type:   domain.TokenEventRefreshFailed,
			Reason: err.Error(),
		})
		return nil, err
	}

	if err := tm.store.Store(ctx, cred); err != nil {
		metrics.IncrementTokenRefresh("failure")
		return nil, fmt.Errorf("store refreshed credential: %w", err)
	}

	metrics.IncrementTokenRefresh("success")
	metrics.ObserveTokenTTL(float64(cred.ExpiresIn))
	tm.logger.Info(ctx, "Refreshed provider token",
		"expires_in_seconds", cred.ExpiresIn,
		"token_fingerprint", crypto.Fingerprint(cred.Token),
	)
	tm.publishEvent(ctx, &domain.TokenEvent{
		Type:             domain.TokenEventRefreshed,
		Kind:             cred.Kind,
		ExpiresInSeconds: cred.ExpiresIn,
		TokenFingerprint: crypto.Fingerprint(cred.Token),
	})
	return cred, nil
}

// runFallback runs the one-shot obtain-then-refresh recovery used when a
// refresh finds no usable token.
func (tm *TokenManager) runFallback(ctx context.Context, reason string) (*domain.Credential, error) {
	metrics.IncrementTokenRefreshFallback()
	tm.publishEvent(ctx, &domain.TokenEvent{
		Type:   domain.TokenEventRefreshFallback,
		Reason: reason,
	})

	cred, err := tm.bootstrap(ctx)
	if err != nil {
		metrics.IncrementTokenRefresh("failure")
		tm.logger.Error(ctx, "Obtain-then-refresh fallback failed", "error", err.Error())
		tm.publishEvent(ctx, &domain.TokenEvent{
			Type:   domain.TokenEventRefreshFailed,
			Reason: err.Error(),
		})
		return nil, err
	}
	return cred, nil
}

// bootstrap builds a long-lived credential from nothing: obtain a short-lived
// token, give the provider a moment to register it, then exchange it. The
// refresh here runs without fallback, since bootstrap is itself the fallback.
func (tm *TokenManager) bootstrap(ctx context.Context) (*domain.Credential, error) {
	if _, err := tm.Obtain(ctx); err != nil {
		return nil, err
	}
	if err := waitFor(ctx, tm.registerDelay); err != nil {
		return nil, err
	}
	return tm.refresh(ctx, false)
}

// ValidToken returns a provider token that is valid right now. The fast path
// is a cache read with no outbound call; an empty or expired cache triggers
// the synchronous bootstrap sequence, bounded by the HTTP client's timeout
// budget and the single fallback refresh.
func (tm *TokenManager) ValidToken(ctx context.Context) (string, error) {
	token, err := tm.store.Token(ctx)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return "", fmt.Errorf("read cached credential: %w", err)
	}
	if token != "" {
		ttl, terr := tm.store.TTL(ctx)
		if terr != nil && !errors.Is(terr, ErrCacheMiss) {
			return "", fmt.Errorf("read cached credential TTL: %w", terr)
		}
		if ttl > 0 {
			metrics.IncrementTokenCacheHit()
			metrics.ObserveTokenTTL(ttl.Seconds())
			return token, nil
		}
	}

	metrics.IncrementTokenCacheMiss()
	tm.logger.Info(ctx, "No valid cached token, bootstrapping synchronously")
	cred, err := tm.bootstrap(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// Status reports a read-only snapshot of the cached credential. It never
// triggers an outbound call.
func (tm *TokenManager) Status(ctx context.Context) (*domain.TokenStatus, error) {
	token, err := tm.store.Token(ctx)
	if errors.Is(err, ErrCacheMiss) || (err == nil && token == "") {
		return &domain.TokenStatus{HasToken: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached credential: %w", err)
	}

	status := &domain.TokenStatus{HasToken: true}

	ttl, err := tm.store.TTL(ctx)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return nil, fmt.Errorf("read cached credential TTL: %w", err)
	}
	if ttl > 0 {
		status.TTLSeconds = int64(ttl.Seconds())
	}

	originalExpiry, err := tm.store.OriginalExpiry(ctx)
	if err == nil {
		status.OriginalExpiry = &originalExpiry
	} else if !errors.Is(err, ErrCacheMiss) {
		return nil, fmt.Errorf("read original expiry: %w", err)
	}

	return status, nil
}

// StartRefreshLoop launches the background loop that keeps a long-lived token
// in the cache. Calling it more than once is a no-op; the loop runs until
// StopRefreshLoop is called or appCtx is cancelled.
func (tm *TokenManager) StartRefreshLoop(appCtx context.Context) {
	tm.loopMu.Lock()
	if tm.loopStarted {
		tm.loopMu.Unlock()
		tm.logger.Warn(appCtx, "Token refresh loop already running, ignoring start request")
		return
	}
	tm.loopStarted = true
	tm.loopMu.Unlock()

	tm.logger.Info(appCtx, "Starting token refresh loop",
		"refresh_buffer", tm.refreshBuffer.String(),
		"long_lived_threshold", tm.longLivedThreshold.String(),
		"error_cooldown", tm.errorCooldown.String(),
	)

	tm.loopWg.Add(1)
	safego.Execute(appCtx, tm.logger, "TokenRefreshLoop", func() {
		defer tm.loopWg.Done()
		tm.refreshLoop(appCtx)
	})
}

// StopRefreshLoop signals the refresh loop to stop and waits for it to
// finish. Safe to call multiple times and before StartRefreshLoop.
func (tm *TokenManager) StopRefreshLoop() {
	tm.loopMu.Lock()
	if !tm.loopStarted || tm.loopStopped {
		tm.loopMu.Unlock()
		return
	}
	tm.loopStopped = true
	close(tm.loopStop)
	tm.loopMu.Unlock()

	tm.loopWg.Wait()
	tm.logger.Info(context.Background(), "Token refresh loop stopped")
}

// refreshLoop derives the lifecycle state from the cache each iteration and
// runs that state's transition. A failed iteration logs, cools down, and
// retries the same state; only cancellation or StopRefreshLoop end the loop.
func (tm *TokenManager) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-tm.loopStop:
			tm.logger.Info(ctx, "Token refresh loop stopping as requested")
			return
		case <-ctx.Done():
			tm.logger.Info(ctx, "Token refresh loop stopping due to context cancellation")
			return
		default:
		}

		hasToken, ttl, err := tm.cacheSnapshot(ctx)
		if err != nil {
			if !tm.coolDownAfter(ctx, "snapshot", err) {
				return
			}
			continue
		}

		state := domain.DeriveState(hasToken, ttl, tm.longLivedThreshold)
		switch state {
		case domain.StateEmpty, domain.StateExpired:
			tm.logger.Info(ctx, "No usable token, bootstrapping", "state", string(state))
			if _, err := tm.bootstrap(ctx); err != nil {
				if !tm.coolDownAfter(ctx, string(state), err) {
					return
				}
				continue
			}
		case domain.StateShortLived:
			tm.logger.Info(ctx, "Short-lived token detected, refreshing for a long-lived one", "ttl", ttl.String())
			if _, err := tm.refresh(ctx, true); err != nil {
				if !tm.coolDownAfter(ctx, string(state), err) {
					return
				}
				continue
			}
		case domain.StateLongLived:
			wait := ttl - tm.refreshBuffer
			if wait > 0 {
				tm.logger.Debug(ctx, "Long-lived token valid, sleeping until refresh is due",
					"ttl", ttl.String(), "wait", wait.String())
				if !tm.sleepInterruptible(ctx, wait) {
					return
				}
				continue
			}
			tm.logger.Info(ctx, "Token inside the refresh buffer, refreshing now", "ttl", ttl.String())
			if _, err := tm.refresh(ctx, true); err != nil {
				if !tm.coolDownAfter(ctx, string(state), err) {
					return
				}
				continue
			}
		}

		// Let the fresh credential settle before re-deriving state.
		if !tm.sleepInterruptible(ctx, tm.refreshSettle) {
			return
		}
	}
}

// coolDownAfter logs a failed loop iteration and sleeps the error cooldown.
// It reports false when the loop should exit instead of retrying.
func (tm *TokenManager) coolDownAfter(ctx context.Context, state string, err error) bool {
	metrics.IncrementRefreshLoopError()
	tm.logger.Error(ctx, "Token refresh loop iteration failed, cooling down",
		"state", state,
		"cooldown", tm.errorCooldown.String(),
		"error", err.Error(),
	)
	return tm.sleepInterruptible(ctx, tm.errorCooldown)
}

// cacheSnapshot reads the loop's view of the cache: whether a token exists
// and how long it has left.
func (tm *TokenManager) cacheSnapshot(ctx context.Context) (bool, time.Duration, error) {
	ttl, err := tm.store.TTL(ctx)
	if errors.Is(err, ErrCacheMiss) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("read cached credential TTL: %w", err)
	}
	return true, ttl, nil
}

// sleepInterruptible sleeps for d, returning false if the loop was stopped or
// the context cancelled first.
func (tm *TokenManager) sleepInterruptible(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-tm.loopStop:
		return false
	case <-ctx.Done():
		return false
	}
}

// publishEvent emits a lifecycle event on a best-effort basis. Broker
// problems are logged and swallowed; they never fail the lifecycle operation.
func (tm *TokenManager) publishEvent(ctx context.Context, event *domain.TokenEvent) {
	if tm.events == nil {
		return
	}
	if err := tm.events.PublishTokenEvent(ctx, event); err != nil {
		tm.logger.Warn(ctx, "Failed to publish token lifecycle event",
			"event_type", string(event.Type), "error", err.Error())
	}
}

// waitFor blocks for d or until ctx is cancelled.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
