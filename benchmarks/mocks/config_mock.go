package mocks

import (
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
)

// MockConfigProvider implements config.Provider for benchmarking
type MockConfigProvider struct {
	config *config.Config
}

// NewMockConfigProvider creates a new mock config provider with benchmark settings.
// Lifecycle delays are zeroed so benchmarks measure work, not sleeps.
func NewMockConfigProvider() *MockConfigProvider {
	return &MockConfigProvider{
		config: &config.Config{
			Server: config.ServerConfig{
				HTTPPort: 0, // Random port
			},
			NATS: config.NATSConfig{
				URL:           "nats://mock-nats:4222",
				SubjectPrefix: "billing.facturify.token",
			},
			Redis: config.RedisConfig{
				Address:  "mock-redis:6379",
				Password: "",
				DB:       0,
			},
			Log: config.LogConfig{
				Level: "error", // Minimize I/O overhead during benchmarks
			},
			Auth: config.AuthConfig{
				AdminAPIKey: "benchmark-admin-key-32chars12345",
			},
			Facturify: config.FacturifyConfig{
				BaseURL:             "https://mock-provider.invalid",
				APIKey:              "benchmark-api-key",
				APISecret:           "benchmark-api-secret",
				TimeoutSeconds:      1,
				MaxRetries:          1,
				RetryBackoffSeconds: 0.001,

				RefreshBufferSeconds:      60,
				LongLivedThresholdSeconds: 300,
				RegisterDelaySeconds:      0,
				RefreshSettleSeconds:      0,
				ErrorCooldownSeconds:      0,
				CacheNamespace:            "facturify-benchmark",
			},
			App: config.AppConfig{
				ServiceName:            "facturify-gateway-benchmark",
				Version:                "test",
				ShutdownTimeoutSeconds: 1,
				WriteTimeoutSeconds:    5,
			},
		},
	}
}

// Get implements config.Provider
func (m *MockConfigProvider) Get() *config.Config {
	return m.config
}

// UpdateConfig allows updating config during tests
func (m *MockConfigProvider) UpdateConfig(cfg *config.Config) {
	m.config = cfg
}
