package utils

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// ServiceMetrics tracks gateway-specific counters during benchmarks
type ServiceMetrics struct {
	TokenObtains      int64
	TokenRefreshes    int64
	RefreshFallbacks  int64
	CacheHits         int64
	CacheMisses       int64
	EventsPublished   int64
	ProviderRequests  int64
	ProviderFailures  int64
	DocumentsStamped  int64
	DocumentsRejected int64

	mu sync.RWMutex
}

// BenchmarkRunner provides utilities for running benchmarks with metrics collection
type BenchmarkRunner struct {
	startTime      time.Time
	endTime        time.Time
	memStatsStart  runtime.MemStats
	memStatsEnd    runtime.MemStats
	goroutineStart int
	goroutineEnd   int

	// Custom metrics
	operationCount int64
	errorCount     int64

	mu sync.RWMutex
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.startTime = time.Now()
	br.goroutineStart = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.endTime = time.Now()
	br.goroutineEnd = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// IncrementOperations increments the operation counter
func (br *BenchmarkRunner) IncrementOperations(count int64) {
	atomic.AddInt64(&br.operationCount, count)
}

// IncrementErrors increments the error counter
func (br *BenchmarkRunner) IncrementErrors(count int64) {
	atomic.AddInt64(&br.errorCount, count)
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.RLock()
	defer br.mu.RUnlock()

	duration := br.endTime.Sub(br.startTime)
	operations := atomic.LoadInt64(&br.operationCount)
	errors := atomic.LoadInt64(&br.errorCount)

	var opsPerSecond float64
	if duration.Seconds() > 0 {
		opsPerSecond = float64(operations) / duration.Seconds()
	}

	return &BenchmarkResults{
		Duration:            duration,
		Operations:          operations,
		Errors:              errors,
		OperationsPerSecond: opsPerSecond,
		MemoryAllocated:     br.memStatsEnd.TotalAlloc - br.memStatsStart.TotalAlloc,
		MemoryAllocations:   br.memStatsEnd.Mallocs - br.memStatsStart.Mallocs,
		GoroutineStart:      br.goroutineStart,
		GoroutineEnd:        br.goroutineEnd,
		GoroutineLeak:       br.goroutineEnd - br.goroutineStart,
	}
}

// BenchmarkResults holds the results of a benchmark run
type BenchmarkResults struct {
	Duration            time.Duration `json:"duration_ns"`
	Operations          int64         `json:"operations"`
	Errors              int64         `json:"errors"`
	OperationsPerSecond float64       `json:"operations_per_second"`
	MemoryAllocated     uint64        `json:"memory_allocated_bytes"`
	MemoryAllocations   uint64        `json:"memory_allocations"`
	GoroutineStart      int           `json:"goroutine_start"`
	GoroutineEnd        int           `json:"goroutine_end"`
	GoroutineLeak       int           `json:"goroutine_leak"`
}

// String returns a human-readable representation of the results
func (br *BenchmarkResults) String() string {
	return fmt.Sprintf(
		"Duration: %v, Ops: %d, Errors: %d, Ops/sec: %.2f, Memory: %d bytes, Allocs: %d, Goroutines: %d->%d (leak: %d)",
		br.Duration,
		br.Operations,
		br.Errors,
		br.OperationsPerSecond,
		br.MemoryAllocated,
		br.MemoryAllocations,
		br.GoroutineStart,
		br.GoroutineEnd,
		br.GoroutineLeak,
	)
}

// NewServiceMetrics creates a new service metrics tracker
func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{}
}

// UpdateLifecycleMetrics updates token lifecycle counters
func (sm *ServiceMetrics) UpdateLifecycleMetrics(obtains, refreshes, fallbacks int64) {
	atomic.AddInt64(&sm.TokenObtains, obtains)
	atomic.AddInt64(&sm.TokenRefreshes, refreshes)
	atomic.AddInt64(&sm.RefreshFallbacks, fallbacks)
}

// UpdateCacheMetrics updates credential cache counters
func (sm *ServiceMetrics) UpdateCacheMetrics(hits, misses int64) {
	atomic.AddInt64(&sm.CacheHits, hits)
	atomic.AddInt64(&sm.CacheMisses, misses)
}

// UpdateProviderMetrics updates outbound provider counters
func (sm *ServiceMetrics) UpdateProviderMetrics(requests, failures int64) {
	atomic.AddInt64(&sm.ProviderRequests, requests)
	atomic.AddInt64(&sm.ProviderFailures, failures)
}

// UpdateDocumentMetrics updates stamping counters
func (sm *ServiceMetrics) UpdateDocumentMetrics(stamped, rejected int64) {
	atomic.AddInt64(&sm.DocumentsStamped, stamped)
	atomic.AddInt64(&sm.DocumentsRejected, rejected)
}

// UpdateEventMetrics updates lifecycle event counters
func (sm *ServiceMetrics) UpdateEventMetrics(published int64) {
	atomic.AddInt64(&sm.EventsPublished, published)
}

// GetSnapshot returns a snapshot of current metrics
func (sm *ServiceMetrics) GetSnapshot() ServiceMetrics {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return ServiceMetrics{
		TokenObtains:      atomic.LoadInt64(&sm.TokenObtains),
		TokenRefreshes:    atomic.LoadInt64(&sm.TokenRefreshes),
		RefreshFallbacks:  atomic.LoadInt64(&sm.RefreshFallbacks),
		CacheHits:         atomic.LoadInt64(&sm.CacheHits),
		CacheMisses:       atomic.LoadInt64(&sm.CacheMisses),
		EventsPublished:   atomic.LoadInt64(&sm.EventsPublished),
		ProviderRequests:  atomic.LoadInt64(&sm.ProviderRequests),
		ProviderFailures:  atomic.LoadInt64(&sm.ProviderFailures),
		DocumentsStamped:  atomic.LoadInt64(&sm.DocumentsStamped),
		DocumentsRejected: atomic.LoadInt64(&sm.DocumentsRejected),
	}
}

// CartaPorteGenerator creates carta porte payloads shaped like real stamping
// requests, with a counter so folios stay unique.
type CartaPorteGenerator struct {
	folioCounter int64
}

// NewCartaPorteGenerator creates a new carta porte payload generator
func NewCartaPorteGenerator() *CartaPorteGenerator {
	return &CartaPorteGenerator{}
}

// GeneratePayload creates one stamping payload for the given issuer RFC
func (g *CartaPorteGenerator) GeneratePayload(issuerRFC string) json.RawMessage {
	folio := atomic.AddInt64(&g.folioCounter, 1)

	payload := map[string]interface{}{
		"factura": map[string]interface{}{
			"serie":        "CP",
			"folio":        fmt.Sprintf("%d", folio),
			"fecha":        time.Now().Format("2006-01-02T15:04:05"),
			"tipo":         "T",
			"lugar":        "42501",
			"moneda":       "XXX",
			"emisor_rfc":   issuerRFC,
			"receptor_rfc": "XAXX010101000",
		},
		"conceptos": []map[string]interface{}{
			{
				"clave_prod_serv": "78101800",
				"cantidad":        1,
				"clave_unidad":    "E48",
				"descripcion":     "Servicio de transporte de carga",
				"valor_unitario":  0,
				"importe":         0,
			},
		},
		"complemento": map[string]interface{}{
			"carta_porte": map[string]interface{}{
				"version":         "3.1",
				"transp_internac": "No",
				"mercancias": map[string]interface{}{
					"peso_bruto_total": 1500.5,
					"unidad_peso":      "KGM",
					"mercancia": []map[string]interface{}{
						{
							"bienes_transp": "11121900",
							"descripcion":   "Refacciones automotrices",
							"cantidad":      10,
							"clave_unidad":  "H87",
							"peso_en_kg":    150.05,
						},
					},
				},
				"autotransporte": map[string]interface{}{
					"perm_sct":             "TPAF01",
					"num_permiso_sct":      fmt.Sprintf("NP-%06d", folio),
					"config_vehicular":     "C2",
					"placa_vm":             fmt.Sprintf("ABC%04d", folio%10000),
					"anio_modelo_vm":       2021,
					"asegura_resp_civil":   "Aseguradora Central",
					"poliza_resp_civil":    fmt.Sprintf("POL-%08d", folio),
					"peso_bruto_vehicular": 8500,
				},
			},
		},
	}

	raw, _ := json.Marshal(payload)
	return raw
}

// GenerateBatch creates n stamping payloads for the given issuer RFC
func (g *CartaPorteGenerator) GenerateBatch(n int, issuerRFC string) []json.RawMessage {
	payloads := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		payloads = append(payloads, g.GeneratePayload(issuerRFC))
	}
	return payloads
}

// TokenEventGenerator creates lifecycle event payloads for publisher
// benchmarks.
type TokenEventGenerator struct {
	eventCounter int64
}

// NewTokenEventGenerator creates a new token event generator
func NewTokenEventGenerator() *TokenEventGenerator {
	return &TokenEventGenerator{}
}

// GenerateEvent creates one lifecycle event of the given type
func (g *TokenEventGenerator) GenerateEvent(eventType domain.TokenEventType) *domain.TokenEvent {
	n := atomic.AddInt64(&g.eventCounter, 1)

	return &domain.TokenEvent{
		EventID:          fmt.Sprintf("bench_event_%d", n),
		Type:             eventType,
		Kind:             domain.CredentialRefreshed,
		ExpiresInSeconds: 43200,
		TokenFingerprint: fmt.Sprintf("fp%016x", n),
		OccurredAt:       time.Now().UTC(),
	}
}
