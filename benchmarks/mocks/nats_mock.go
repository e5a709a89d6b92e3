package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// MockEventPublisher implements domain.EventPublisher for benchmarking
type MockEventPublisher struct {
	events       []domain.TokenEvent
	countsByType map[domain.TokenEventType]int64
	mu           sync.RWMutex

	// Metrics for benchmarking
	PublishCount int64
	FailCount    int64

	// PublishErr, when set, is returned by every publish. The lifecycle
	// treats publishing as best-effort, so this exercises the swallow path.
	PublishErr error
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events:       make([]domain.TokenEvent, 0),
		countsByType: make(map[domain.TokenEventType]int64),
	}
}

// PublishTokenEvent implements domain.EventPublisher
func (m *MockEventPublisher) PublishTokenEvent(ctx context.Context, event *domain.TokenEvent) error {
	if m.PublishErr != nil {
		atomic.AddInt64(&m.FailCount, 1)
		return m.PublishErr
	}

	atomic.AddInt64(&m.PublishCount, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	m.countsByType[event.Type]++
	return nil
}

// NatsConn implements domain.EventPublisher
func (m *MockEventPublisher) NatsConn() *nats.Conn {
	// Return nil for mock - benchmarks shouldn't need the actual connection
	return nil
}

// Close implements domain.EventPublisher
func (m *MockEventPublisher) Close() {}

// GetEventCount returns how many events of the given type were published
func (m *MockEventPublisher) GetEventCount(eventType domain.TokenEventType) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countsByType[eventType]
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockEventPublisher) GetMetrics() (published, failed int64) {
	return atomic.LoadInt64(&m.PublishCount), atomic.LoadInt64(&m.FailCount)
}

// Reset clears all events and metrics for reuse between benchmarks
func (m *MockEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = m.events[:0]
	m.countsByType = make(map[domain.TokenEventType]int64)
	atomic.StoreInt64(&m.PublishCount, 0)
	atomic.StoreInt64(&m.FailCount, 0)
}
