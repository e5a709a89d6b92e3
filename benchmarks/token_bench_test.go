package benchmarks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/benchmarks/mocks"
	"gitlab.com/fletera/api/facturify-gateway/internal/application"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// setupTokenBenchmark creates a token lifecycle manager wired to mocks
func setupTokenBenchmark(b *testing.B) (*application.TokenManager, *mocks.MockCredentialStore, *mocks.MockAuthGateway, *mocks.MockEventPublisher) {
	b.Helper()

	mockConfig := mocks.NewMockConfigProvider()
	store := mocks.NewMockCredentialStore()
	gateway := mocks.NewMockAuthGateway()
	events := mocks.NewMockEventPublisher()
	logger := mocks.NewMockLogger()

	manager := application.NewTokenManager(logger, mockConfig, store, gateway, events)
	return manager, store, gateway, events
}

// BenchmarkValidToken measures the token facade's read path
func BenchmarkValidToken(b *testing.B) {
	manager, store, gateway, _ := setupTokenBenchmark(b)
	ctx := context.Background()

	b.Run("CacheHit", func(b *testing.B) {
		store.Preload("bench-token-long", 43200, 12*time.Hour)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := manager.ValidToken(ctx)
			if err != nil {
				b.Errorf("Valid token lookup failed: %v", err)
			}
		}

		obtains, refreshes, _ := gateway.GetMetrics()
		if obtains != 0 || refreshes != 0 {
			b.Errorf("Cache hits must not call the provider, saw %d obtains and %d refreshes", obtains, refreshes)
		}
		b.Logf("Cache hit ratio: %.2f%%", store.GetHitRatio()*100)
	})

	b.Run("ColdBootstrap", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			store.Reset()
			b.StartTimer()

			_, err := manager.ValidToken(ctx)
			if err != nil {
				b.Errorf("Bootstrap failed: %v", err)
			}
		}

		obtains, refreshes, _ := gateway.GetMetrics()
		b.Logf("Provider calls: %d obtains, %d refreshes", obtains, refreshes)
	})
}

// BenchmarkObtain measures the credential exchange write path
func BenchmarkObtain(b *testing.B) {
	manager, store, _, events := setupTokenBenchmark(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := manager.Obtain(ctx)
		if err != nil {
			b.Errorf("Obtain failed: %v", err)
		}
	}

	_, _, stores := store.GetMetrics()
	published, _ := events.GetMetrics()
	b.Logf("Cache writes: %d, events published: %d", stores, published)
}

// BenchmarkRefresh measures the long-lived token exchange
func BenchmarkRefresh(b *testing.B) {
	manager, store, _, _ := setupTokenBenchmark(b)
	ctx := context.Background()

	store.Preload("bench-token-short", 240, 240*time.Second)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := manager.Refresh(ctx)
		if err != nil {
			b.Errorf("Refresh failed: %v", err)
		}
	}
}

// BenchmarkRefreshWithFallback measures the obtain-then-refresh recovery that
// runs when the provider rejects the cached token
func BenchmarkRefreshWithFallback(b *testing.B) {
	manager, store, gateway, events := setupTokenBenchmark(b)
	ctx := context.Background()

	store.Preload("bench-token-stale", 43200, 12*time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		atomic.StoreInt64(&gateway.FailNextRefreshes, 1)
		_, err := manager.Refresh(ctx)
		if err != nil {
			b.Errorf("Fallback refresh failed: %v", err)
		}
	}

	fallbacks := events.GetEventCount(domain.TokenEventRefreshFallback)
	if fallbacks != int64(b.N) {
		b.Errorf("Expected %d fallback events, got %d", b.N, fallbacks)
	}
}

// BenchmarkStatus measures the diagnostics snapshot read
func BenchmarkStatus(b *testing.B) {
	manager, store, gateway, _ := setupTokenBenchmark(b)
	ctx := context.Background()

	store.Preload("bench-token-long", 43200, 12*time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, err := manager.Status(ctx)
		if err != nil {
			b.Errorf("Status failed: %v", err)
		}
		if !status.HasToken {
			b.Error("Expected a cached token in status")
		}
	}

	obtains, refreshes, _ := gateway.GetMetrics()
	if obtains != 0 || refreshes != 0 {
		b.Errorf("Status must not call the provider, saw %d obtains and %d refreshes", obtains, refreshes)
	}
}

// BenchmarkValidTokenConcurrent measures the read path under parallel load,
// the way request handlers hit it
func BenchmarkValidTokenConcurrent(b *testing.B) {
	manager, store, _, _ := setupTokenBenchmark(b)
	ctx := context.Background()

	store.Preload("bench-token-long", 43200, 12*time.Hour)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, err := manager.ValidToken(ctx)
			if err != nil {
				b.Errorf("Concurrent valid token lookup failed: %v", err)
			}
		}
	})

	b.Logf("Concurrent cache hit ratio: %.2f%%", store.GetHitRatio()*100)
}

// BenchmarkMixedReadWorkload interleaves facade reads with status snapshots,
// approximating the gateway's steady-state traffic
func BenchmarkMixedReadWorkload(b *testing.B) {
	manager, store, _, _ := setupTokenBenchmark(b)
	ctx := context.Background()

	store.Preload("bench-token-long", 43200, 12*time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			if _, err := manager.Status(ctx); err != nil {
				b.Errorf("Status failed: %v", err)
			}
			continue
		}
		if _, err := manager.ValidToken(ctx); err != nil {
			b.Errorf("Valid token lookup failed: %v", err)
		}
	}
}
