package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// EventPublisherAdapter publishes token lifecycle events to NATS core
// subjects. Events are telemetry for downstream consumers (dashboards,
// alerting); delivery is fire-and-forget and never gates the lifecycle.
type EventPublisherAdapter struct {
	nc            *nats.Conn
	logger        domain.Logger
	subjectPrefix string
}

// NewEventPublisherAdapter creates a new NATS EventPublisherAdapter.
// It establishes a connection to the NATS server.
func NewEventPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*EventPublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS
	appName := appFullCfg.App.ServiceName

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher", appName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second), // Connection timeout
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	appLogger.Info(ctx, "Successfully connected to NATS server", "url", nc.ConnectedUrl())

	adapter := &EventPublisherAdapter{
		nc:            nc,
		logger:        appLogger,
		subjectPrefix: natsCfg.SubjectPrefix,
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}

	return adapter, cleanup, nil
}

// PublishTokenEvent publishes one lifecycle event to
// <subject_prefix>.<event_type>. Missing event IDs and timestamps are filled
// in here so callers only describe the transition.
func (a *EventPublisherAdapter) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	if event == nil {
		return fmt.Errorf("cannot publish nil token event")
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal token event", "event_type", string(event.Type), "error", err.Error())
		return fmt.Errorf("marshal token event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", a.subjectPrefix, event.Type)
	if err := a.nc.Publish(subject, payload); err != nil {
		a.logger.Error(ctx, "Failed to publish token event", "subject", subject, "error", err.Error())
		return fmt.Errorf("publish token event to %s: %w", subject, err)
	}

	a.logger.Debug(ctx, "Published token event", "subject", subject, "event_id", event.EventID)
	return nil
}

// NatsConn returns the underlying NATS connection, primarily for health checks.
func (a *EventPublisherAdapter) NatsConn() *nats.Conn {
	return a.nc
}

// Close drains and closes the NATS connection.
func (a *EventPublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		a.logger.Info(context.Background(), "Draining NATS connection...")
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		} else {
			a.logger.Info(context.Background(), "NATS connection drained successfully.")
		}
		// Drain closes the connection, so an explicit Close() might be redundant or error if already closed.
	}
}
