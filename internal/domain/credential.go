package domain

import (
	"context"
	"time"
)

// CredentialKind distinguishes how a provider token was minted.
type CredentialKind string

const (
	// CredentialInitial is a token from the credential-exchange endpoint.
	// The provider issues these short-lived (minutes).
	CredentialInitial CredentialKind = "initial"

	// CredentialRefreshed is a token from the refresh endpoint. These are the
	// long-lived tokens (hours) the refresh loop works to keep in cache.
	CredentialRefreshed CredentialKind = "refreshed"
)

// Credential is a provider-issued bearer token plus the lifetime the provider
// reported for it. The token is opaque; nothing in this service decodes it.
type Credential struct {
	Token     string
	ExpiresIn int64 // seconds, as reported by the provider at issuance
	Kind      CredentialKind
	IssuedAt  time.Time
}

// TokenStatus is a read-only snapshot of the cached credential for the
// diagnostics surface.
type TokenStatus struct {
	HasToken       bool   `json:"has_token"`
	TTLSeconds     int64  `json:"ttl"`
	OriginalExpiry *int64 `json:"expires_in"` // nil when the expiry key is gone
}

// LifecycleState classifies a cache snapshot for the refresh loop.
type LifecycleState string

const (
	StateEmpty      LifecycleState = "empty"       // nothing cached
	StateExpired    LifecycleState = "expired"     // cached but TTL exhausted
	StateShortLived LifecycleState = "short_lived" // TTL below the long-lived threshold
	StateLongLived  LifecycleState = "long_lived"  // TTL at or above the threshold
)

// DeriveState classifies a cache snapshot. threshold is the boundary below
// which a token counts as short-lived.
func DeriveState(hasToken bool, ttl, threshold time.Duration) LifecycleState {
	switch {
	case !hasToken:
		return StateEmpty
	case ttl <= 0:
		return StateExpired
	case ttl < threshold:
		return StateShortLived
	default:
		return StateLongLived
	}
}

// CredentialStore is the shared cache holding the current provider
// credential. Implementations report an absent key with the application
// layer's cache-miss sentinel.
type CredentialStore interface {
	// Token retrieves the cached bearer token.
	Token(ctx context.Context) (string, error)

	// TTL reports the remaining lifetime of the cached token. Zero or
	// negative means the token is gone or expiring right now.
	TTL(ctx context.Context) (time.Duration, error)

	// OriginalExpiry retrieves the expires_in the provider reported when the
	// cached token was issued.
	OriginalExpiry(ctx context.Context) (int64, error)

	// Store writes the credential and its reported expiry together, both set
	// to expire after cred.ExpiresIn seconds.
	Store(ctx context.Context, cred *Credential) error
}

// AuthGateway is the outbound port to the provider's authentication
// endpoints. Implementations translate provider responses into the error
// taxonomy; they do not touch the cache.
type AuthGateway interface {
	// Obtain exchanges the configured API credentials for a fresh
	// short-lived token.
	Obtain(ctx context.Context) (*Credential, error)

	// Refresh exchanges a currently valid token for a long-lived one. A
	// rejected token surfaces as TokenInvalidError.
	Refresh(ctx context.Context, currentToken string) (*Credential, error)
}

// TokenSource hands out a provider token that is valid right now. It is the
// only credential interface the rest of the service consumes.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, error)
}
