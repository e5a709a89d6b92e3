package facturify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/metrics"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
	"gitlab.com/fletera/api/facturify-gateway/pkg/contextkeys"
)

// CompanyClient implements domain.CompanyDirectory against the provider's
// issuer (empresa) endpoint. The provider offers no by-RFC lookup, so RFC
// searches list everything and match locally.
type CompanyClient struct {
	configProvider config.Provider
	logger         domain.Logger
	tokens         domain.TokenSource
	httpClient     *retryablehttp.Client
}

// NewCompanyClient creates a CompanyClient with its own resilient HTTP client.
func NewCompanyClient(configProvider config.Provider, logger domain.Logger, tokens domain.TokenSource) *CompanyClient {
	if configProvider == nil {
		panic("NewCompanyClient: configProvider is nil")
	}
	if logger == nil {
		panic("NewCompanyClient: logger is nil")
	}
	if tokens == nil {
		panic("NewCompanyClient: tokens is nil")
	}
	return &CompanyClient{
		configProvider: configProvider,
		logger:         logger,
		tokens:         tokens,
		httpClient:     newRetryingClient(configProvider.Get().Facturify, logger),
	}
}

// Companies fetches all issuer companies registered with the provider.
func (c *CompanyClient) Companies(ctx context.Context) (*domain.CompanyPage, error) {
	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		metrics.IncrementProviderRequest("list_companies", "failure")
		return nil, fmt.Errorf("acquire provider token: %w", err)
	}

	cfg := c.configProvider.Get().Facturify
	headers := map[string]string{"Authorization": "Bearer " + token}
	status, body, err := doJSON(ctx, c.httpClient, "list_companies", http.MethodGet,
		providerBaseURL(cfg)+"/api/v1/empresa/", headers, nil)
	if err != nil {
		metrics.IncrementProviderRequest("list_companies", "failure")
		return nil, err
	}
	if status != http.StatusOK {
		metrics.IncrementProviderRequest("list_companies", "failure")
		c.logger.Error(ctx, "Provider rejected company listing",
			"status", status, "provider_response", string(body))
		return nil, ParseError(status, body)
	}

	var page domain.CompanyPage
	if err := json.Unmarshal(body, &page); err != nil {
		metrics.IncrementProviderRequest("list_companies", "failure")
		return nil, fmt.Errorf("decode company listing: %w", err)
	}
	metrics.IncrementProviderRequest("list_companies", "success")
	c.logger.Debug(ctx, "Fetched provider company listing", "count", len(page.Data))
	return &page, nil
}

// CompanyByRFC finds the company whose RFC matches rfc after trim/upper
// normalization. Returns (nil, nil) when no company matches.
func (c *CompanyClient) CompanyByRFC(ctx context.Context, rfc string) (json.RawMessage, error) {
	want := strings.ToUpper(strings.TrimSpace(rfc))
	ctx = context.WithValue(ctx, contextkeys.CompanyRFCKey, want)

	page, err := c.Companies(ctx)
	if err != nil {
		return nil, err
	}

	for _, item := range page.Data {
		var probe struct {
			RFC string `json:"rfc"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(probe.RFC)) == want {
			return item, nil
		}
	}
	c.logger.Warn(ctx, "No provider company matches RFC", "rfc", want)
	return nil, nil
}
