package benchmarks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/benchmarks/mocks"
	"gitlab.com/fletera/api/facturify-gateway/benchmarks/utils"
	apphttp "gitlab.com/fletera/api/facturify-gateway/internal/adapters/http"
	"gitlab.com/fletera/api/facturify-gateway/internal/application"
)

// setupHTTPBenchmark stands up the gateway's HTTP surface on an ephemeral
// server, with every outbound dependency mocked and a warm credential cache
func setupHTTPBenchmark(b *testing.B) (*utils.LoadClient, *mocks.MockCredentialStore, *mocks.MockCFDIProvider) {
	b.Helper()

	mockConfig := mocks.NewMockConfigProvider()
	store := mocks.NewMockCredentialStore()
	gateway := mocks.NewMockAuthGateway()
	events := mocks.NewMockEventPublisher()
	logger := mocks.NewMockLogger()
	provider := mocks.NewMockCFDIProvider()
	directory := mocks.NewMockCompanyDirectory(50)

	manager := application.NewTokenManager(logger, mockConfig, store, gateway, events)
	store.Preload("bench-token-long", 43200, 12*time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/facturify/auth/token", apphttp.ValidTokenHandler(manager, logger))
	mux.HandleFunc("POST /api/v1/facturify/auth/token", apphttp.ObtainTokenHandler(manager, logger))
	mux.HandleFunc("POST /api/v1/facturify/auth/token/refresh", apphttp.RefreshTokenHandler(manager, logger))
	mux.HandleFunc("GET /api/v1/facturify/auth/token/status", apphttp.TokenStatusHandler(manager, logger))
	mux.HandleFunc("GET /api/v1/facturify/empresa/{$}", apphttp.ListCompaniesHandler(directory, logger))
	mux.HandleFunc("GET /api/v1/facturify/empresa/rfc/{rfc}", apphttp.CompanyByRFCHandler(directory, logger))
	mux.HandleFunc("POST /api/v1/facturify/cfdi/carta-porte", apphttp.StampCartaPorteHandler(provider, logger))
	mux.HandleFunc("GET /api/v1/facturify/cfdi/{uuid}", apphttp.GetInvoiceHandler(provider, logger))
	mux.HandleFunc("GET /api/v1/facturify/clients", apphttp.ListClientsHandler(provider, logger))

	server := httptest.NewServer(mux)
	b.Cleanup(server.Close)

	return utils.NewLoadClient(server.URL), store, provider
}

// BenchmarkHTTPValidToken measures the full request path of the token facade
func BenchmarkHTTPValidToken(b *testing.B) {
	client, store, _ := setupHTTPBenchmark(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, _, err := client.Get(ctx, "/api/v1/facturify/auth/token")
		if err != nil {
			b.Errorf("Request failed: %v", err)
		}
		if status != http.StatusOK {
			b.Errorf("Expected 200, got %d", status)
		}
	}

	b.Logf("Average latency: %v, cache hit ratio: %.2f%%", client.AverageLatency(), store.GetHitRatio()*100)
}

// BenchmarkHTTPTokenStatus measures the diagnostics endpoint
func BenchmarkHTTPTokenStatus(b *testing.B) {
	client, _, _ := setupHTTPBenchmark(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, _, err := client.Get(ctx, "/api/v1/facturify/auth/token/status")
		if err != nil {
			b.Errorf("Request failed: %v", err)
		}
		if status != http.StatusOK {
			b.Errorf("Expected 200, got %d", status)
		}
	}
}

// BenchmarkHTTPStampCartaPorte measures document submission end to end
func BenchmarkHTTPStampCartaPorte(b *testing.B) {
	client, _, provider := setupHTTPBenchmark(b)
	ctx := context.Background()

	payloads := utils.NewCartaPorteGenerator().GenerateBatch(100, "ALO161103C77")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, _, err := client.PostJSON(ctx, "/api/v1/facturify/cfdi/carta-porte", payloads[i%len(payloads)])
		if err != nil {
			b.Errorf("Request failed: %v", err)
		}
		if status != http.StatusCreated {
			b.Errorf("Expected 201, got %d", status)
		}
	}

	stamps, _, _ := provider.GetMetrics()
	b.Logf("Documents stamped: %d, average latency: %v", stamps, client.AverageLatency())
}

// BenchmarkHTTPCompanyLookup measures issuer directory reads
func BenchmarkHTTPCompanyLookup(b *testing.B) {
	b.Run("Found", func(b *testing.B) {
		client, _, _ := setupHTTPBenchmark(b)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			status, _, err := client.Get(ctx, "/api/v1/facturify/empresa/rfc/BEN000000007")
			if err != nil {
				b.Errorf("Request failed: %v", err)
			}
			if status != http.StatusOK {
				b.Errorf("Expected 200, got %d", status)
			}
		}
	})

	b.Run("NotFound", func(b *testing.B) {
		client, _, _ := setupHTTPBenchmark(b)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			status, _, err := client.Get(ctx, "/api/v1/facturify/empresa/rfc/ZZZ010101ZZZ")
			if err != nil {
				b.Errorf("Request failed: %v", err)
			}
			if status != http.StatusNotFound {
				b.Errorf("Expected 404, got %d", status)
			}
		}
	})
}

// BenchmarkHTTPConcurrentMixed replays the gateway's steady-state traffic
// mix under parallel load
func BenchmarkHTTPConcurrentMixed(b *testing.B) {
	client, store, _ := setupHTTPBenchmark(b)
	ctx := context.Background()

	paths := []string{
		"/api/v1/facturify/auth/token",
		"/api/v1/facturify/auth/token/status",
		"/api/v1/facturify/clients",
		"/api/v1/facturify/empresa/",
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		pathIndex := 0
		for pb.Next() {
			path := paths[pathIndex%len(paths)]
			status, _, err := client.Get(ctx, path)
			if err != nil {
				b.Errorf("Request to %s failed: %v", path, err)
			}
			if status != http.StatusOK {
				b.Errorf("Expected 200 from %s, got %d", path, status)
			}
			pathIndex++
		}
	})

	sent, ok2xx, client4xx, server5xx, transportErrs := client.GetMetrics()
	b.Logf("Requests: %d (2xx: %d, 4xx: %d, 5xx: %d, transport errors: %d), average latency: %v, cache hit ratio: %.2f%%",
		sent, ok2xx, client4xx, server5xx, transportErrs, client.AverageLatency(), store.GetHitRatio()*100)
}
