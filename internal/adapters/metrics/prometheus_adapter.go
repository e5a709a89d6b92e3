package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenObtainCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fgw_token_obtain_total",
			Help: "Credential-exchange calls against the provider, by outcome.",
		},
		[]string{"outcome"},
	)

	TokenRefreshCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fgw_token_refresh_total",
			Help: "Token refresh calls against the provider, by outcome.",
		},
		[]string{"outcome"},
	)

	TokenRefreshFallbackCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fgw_token_refresh_fallback_total",
			Help: "Refreshes that fell back to a full obtain-then-refresh sequence.",
		},
	)

	TokenCacheHitCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fgw_token_cache_hits_total",
			Help: "ValidToken calls answered from the cache without an outbound call.",
		},
	)

	TokenCacheMissCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fgw_token_cache_misses_total",
			Help: "ValidToken calls that had to bootstrap a credential.",
		},
	)

	TokenTTLGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fgw_token_ttl_seconds",
			Help: "Remaining lifetime of the cached provider token, as last observed.",
		},
	)

	RefreshLoopErrorCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fgw_refresh_loop_errors_total",
			Help: "Failed refresh-loop iterations (a cooldown follows each).",
		},
	)

	ProviderRetryCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fgw_provider_request_retries_total",
			Help: "Transport-level retries issued by the resilient HTTP client.",
		},
	)

	ProviderRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fgw_provider_requests_total",
			Help: "Business requests against the provider, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// IncrementTokenObtain records one obtain call with the given outcome label.
func IncrementTokenObtain(outcome string) {
	TokenObtainCounter.WithLabelValues(outcome).Inc()
}

// IncrementTokenRefresh records one refresh call with the given outcome label.
func IncrementTokenRefresh(outcome string) {
	TokenRefreshCounter.WithLabelValues(outcome).Inc()
}

// IncrementTokenRefreshFallback records one obtain-then-refresh fallback.
func IncrementTokenRefreshFallback() {
	TokenRefreshFallbackCounter.Inc()
}

// IncrementTokenCacheHit records a ValidToken call served from cache.
func IncrementTokenCacheHit() {
	TokenCacheHitCounter.Inc()
}

// IncrementTokenCacheMiss records a ValidToken call that bootstrapped.
func IncrementTokenCacheMiss() {
	TokenCacheMissCounter.Inc()
}

// ObserveTokenTTL updates the token TTL gauge.
func ObserveTokenTTL(seconds float64) {
	TokenTTLGauge.Set(seconds)
}

// IncrementRefreshLoopError records one failed refresh-loop iteration.
func IncrementRefreshLoopError() {
	RefreshLoopErrorCounter.Inc()
}

// IncrementProviderRetry records one transport-level retry.
func IncrementProviderRetry() {
	ProviderRetryCounter.Inc()
}

// IncrementProviderRequest records one business request by operation and outcome.
func IncrementProviderRequest(operation, outcome string) {
	ProviderRequestCounter.WithLabelValues(operation, outcome).Inc()
}
