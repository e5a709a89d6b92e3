package domain

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
)

// TokenEventType enumerates credential lifecycle transitions worth announcing.
type TokenEventType string

const (
	TokenEventObtained        TokenEventType = "obtained"
	TokenEventRefreshed       TokenEventType = "refreshed"
	TokenEventRefreshFallback TokenEventType = "refresh_fallback"
	TokenEventRefreshFailed   TokenEventType = "refresh_failed"
)

// TokenEvent describes one credential lifecycle transition. Events carry a
// token fingerprint, never the token itself.
type TokenEvent struct {
	EventID          string         `json:"event_id"`
	Type             TokenEventType `json:"type"`
	Kind             CredentialKind `json:"kind,omitempty"`
	ExpiresInSeconds int64          `json:"expires_in_seconds,omitempty"`
	TokenFingerprint string         `json:"token_fingerprint,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	OccurredAt       time.Time      `json:"occurred_at"`
}

// EventPublisher emits lifecycle events for downstream consumers (dashboards,
// alerting). Publishing is best-effort: implementations must never block the
// credential lifecycle on broker availability.
type EventPublisher interface {
	// PublishTokenEvent publishes a single lifecycle event.
	PublishTokenEvent(ctx context.Context, event *TokenEvent) error

	// NatsConn returns the underlying NATS connection, primarily for health checks.
	// Use with caution, prefer specific interface methods where possible.
	NatsConn() *nats.Conn

	// Close gracefully closes the publisher connection.
	Close()
}
