package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/internal/application"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// MockCredentialStore implements domain.CredentialStore using in-memory
// storage with real deadline-based expiry, mirroring the Redis adapter's
// TTL semantics.
type MockCredentialStore struct {
	token          string
	originalExpiry int64
	deadline       time.Time
	mu             sync.RWMutex

	// Metrics for benchmarking
	Hits   int64
	Misses int64
	Stores int64
}

// NewMockCredentialStore creates a new mock credential store
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{}
}

// Token implements domain.CredentialStore
func (m *MockCredentialStore) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" || time.Now().After(m.deadline) {
		atomic.AddInt64(&m.Misses, 1)
		return "", application.ErrCacheMiss
	}

	atomic.AddInt64(&m.Hits, 1)
	return m.token, nil
}

// TTL implements domain.CredentialStore
func (m *MockCredentialStore) TTL(ctx context.Context) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		atomic.AddInt64(&m.Misses, 1)
		return 0, application.ErrCacheMiss
	}

	ttl := time.Until(m.deadline)
	if ttl <= 0 {
		atomic.AddInt64(&m.Misses, 1)
		return 0, application.ErrCacheMiss
	}

	atomic.AddInt64(&m.Hits, 1)
	return ttl, nil
}

// OriginalExpiry implements domain.CredentialStore
func (m *MockCredentialStore) OriginalExpiry(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" || time.Now().After(m.deadline) {
		atomic.AddInt64(&m.Misses, 1)
		return 0, application.ErrCacheMiss
	}

	atomic.AddInt64(&m.Hits, 1)
	return m.originalExpiry, nil
}

// Store implements domain.CredentialStore
func (m *MockCredentialStore) Store(ctx context.Context, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = cred.Token
	m.originalExpiry = cred.ExpiresIn
	m.deadline = time.Now().Add(time.Duration(cred.ExpiresIn) * time.Second)

	atomic.AddInt64(&m.Stores, 1)
	return nil
}

// Preload seeds the store with a credential that expires after ttl,
// bypassing the Stores counter.
func (m *MockCredentialStore) Preload(token string, originalExpiry int64, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
	m.originalExpiry = originalExpiry
	m.deadline = time.Now().Add(ttl)
}

// GetHitRatio returns the cache hit ratio for benchmark analysis
func (m *MockCredentialStore) GetHitRatio() float64 {
	hits := atomic.LoadInt64(&m.Hits)
	misses := atomic.LoadInt64(&m.Misses)

	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockCredentialStore) GetMetrics() (hits, misses, stores int64) {
	return atomic.LoadInt64(&m.Hits),
		atomic.LoadInt64(&m.Misses),
		atomic.LoadInt64(&m.Stores)
}

// Reset clears all state and metrics for reuse between benchmarks
func (m *MockCredentialStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	m.originalExpiry = 0
	m.deadline = time.Time{}

	atomic.StoreInt64(&m.Hits, 0)
	atomic.StoreInt64(&m.Misses, 0)
	atomic.StoreInt64(&m.Stores, 0)
}
