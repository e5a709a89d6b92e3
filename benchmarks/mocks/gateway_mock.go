package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// MockAuthGateway implements domain.AuthGateway for benchmarking. It mints
// counter-derived tokens so every issuance is distinct, the way the provider
// behaves.
type MockAuthGateway struct {
	tokenCounter int64

	// ShortTTL and LongTTL are the expires_in values reported for obtained
	// and refreshed credentials. Defaults mirror the provider: 240s / 43200s.
	ShortTTL int64
	LongTTL  int64

	// Latency, when set, is slept on every call to simulate provider RTT.
	Latency time.Duration

	// FailNextRefreshes rejects that many refresh calls with a stale-token
	// error before succeeding again. Exercises the fallback path.
	FailNextRefreshes int64

	// Metrics for benchmarking
	ObtainCount  int64
	RefreshCount int64
	RejectCount  int64
}

// NewMockAuthGateway creates a new mock auth gateway with provider-like TTLs
func NewMockAuthGateway() *MockAuthGateway {
	return &MockAuthGateway{
		ShortTTL: 240,
		LongTTL:  43200,
	}
}

// Obtain implements domain.AuthGateway
func (m *MockAuthGateway) Obtain(ctx context.Context) (*domain.Credential, error) {
	atomic.AddInt64(&m.ObtainCount, 1)
	m.simulateLatency()

	return &domain.Credential{
		Token:     m.nextToken("initial"),
		ExpiresIn: m.ShortTTL,
		Kind:      domain.CredentialInitial,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

// Refresh implements domain.AuthGateway
func (m *MockAuthGateway) Refresh(ctx context.Context, currentToken string) (*domain.Credential, error) {
	atomic.AddInt64(&m.RefreshCount, 1)
	m.simulateLatency()

	if atomic.LoadInt64(&m.FailNextRefreshes) > 0 {
		atomic.AddInt64(&m.FailNextRefreshes, -1)
		atomic.AddInt64(&m.RejectCount, 1)
		return nil, domain.NewTokenInvalidError(401, "mock: token rejected")
	}

	return &domain.Credential{
		Token:     m.nextToken("refreshed"),
		ExpiresIn: m.LongTTL,
		Kind:      domain.CredentialRefreshed,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

func (m *MockAuthGateway) nextToken(kind string) string {
	n := atomic.AddInt64(&m.tokenCounter, 1)
	return fmt.Sprintf("mock-%s-token-%d", kind, n)
}

func (m *MockAuthGateway) simulateLatency() {
	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockAuthGateway) GetMetrics() (obtains, refreshes, rejects int64) {
	return atomic.LoadInt64(&m.ObtainCount),
		atomic.LoadInt64(&m.RefreshCount),
		atomic.LoadInt64(&m.RejectCount)
}

// Reset clears all metrics and failure injection
func (m *MockAuthGateway) Reset() {
	atomic.StoreInt64(&m.tokenCounter, 0)
	atomic.StoreInt64(&m.ObtainCount, 0)
	atomic.StoreInt64(&m.RefreshCount, 0)
	atomic.StoreInt64(&m.RejectCount, 0)
	atomic.StoreInt64(&m.FailNextRefreshes, 0)
}

// MockCFDIProvider implements domain.CFDIProvider for benchmarking. It
// answers every operation with a canned success payload.
type MockCFDIProvider struct {
	stampResponse   json.RawMessage
	invoiceResponse json.RawMessage
	clientsResponse json.RawMessage

	// Metrics for benchmarking
	StampCount   int64
	InvoiceCount int64
	ClientsCount int64
}

// NewMockCFDIProvider creates a new mock CFDI provider
func NewMockCFDIProvider() *MockCFDIProvider {
	return &MockCFDIProvider{
		stampResponse:   json.RawMessage(`{"success":true,"message":"Factura timbrada","data":{"uuid":"5FB2822E-396D-4B08-8BCF-85A0B73CBB47"}}`),
		invoiceResponse: json.RawMessage(`{"success":true,"data":{"uuid":"5FB2822E-396D-4B08-8BCF-85A0B73CBB47","status":"vigente"}}`),
		clientsResponse: json.RawMessage(`{"success":true,"data":[]}`),
	}
}

// StampCartaPorte implements domain.CFDIProvider
func (m *MockCFDIProvider) StampCartaPorte(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	atomic.AddInt64(&m.StampCount, 1)
	return m.stampResponse, nil
}

// Invoice implements domain.CFDIProvider
func (m *MockCFDIProvider) Invoice(ctx context.Context, cfdiUUID string) (json.RawMessage, error) {
	atomic.AddInt64(&m.InvoiceCount, 1)
	return m.invoiceResponse, nil
}

// Clients implements domain.CFDIProvider
func (m *MockCFDIProvider) Clients(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	atomic.AddInt64(&m.ClientsCount, 1)
	return m.clientsResponse, nil
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockCFDIProvider) GetMetrics() (stamps, invoices, clients int64) {
	return atomic.LoadInt64(&m.StampCount),
		atomic.LoadInt64(&m.InvoiceCount),
		atomic.LoadInt64(&m.ClientsCount)
}

// Reset clears all metrics
func (m *MockCFDIProvider) Reset() {
	atomic.StoreInt64(&m.StampCount, 0)
	atomic.StoreInt64(&m.InvoiceCount, 0)
	atomic.StoreInt64(&m.ClientsCount, 0)
}

// MockCompanyDirectory implements domain.CompanyDirectory for benchmarking
type MockCompanyDirectory struct {
	page *domain.CompanyPage

	// Metrics for benchmarking
	ListCount   int64
	LookupCount int64
}

// NewMockCompanyDirectory creates a directory preloaded with count companies
func NewMockCompanyDirectory(count int) *MockCompanyDirectory {
	data := make([]json.RawMessage, 0, count)
	for i := 0; i < count; i++ {
		data = append(data, json.RawMessage(fmt.Sprintf(`{"rfc":"BEN%09d","razon_social":"Empresa %d"}`, i, i)))
	}
	return &MockCompanyDirectory{page: &domain.CompanyPage{Data: data}}
}

// Companies implements domain.CompanyDirectory
func (m *MockCompanyDirectory) Companies(ctx context.Context) (*domain.CompanyPage, error) {
	atomic.AddInt64(&m.ListCount, 1)
	return m.page, nil
}

// CompanyByRFC implements domain.CompanyDirectory
func (m *MockCompanyDirectory) CompanyByRFC(ctx context.Context, rfc string) (json.RawMessage, error) {
	atomic.AddInt64(&m.LookupCount, 1)

	for _, item := range m.page.Data {
		var probe struct {
			RFC string `json:"rfc"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			continue
		}
		if probe.RFC == rfc {
			return item, nil
		}
	}
	return nil, nil
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockCompanyDirectory) GetMetrics() (lists, lookups int64) {
	return atomic.LoadInt64(&m.ListCount), atomic.LoadInt64(&m.LookupCount)
}
