package facturify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/metrics"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
	"gitlab.com/fletera/api/facturify-gateway/pkg/contextkeys"
)

const defaultClientPageSize = 50

// DocumentClient implements domain.CFDIProvider against the provider's
// stamping endpoints. Every call borrows a valid bearer token from the token
// facade, so callers never see authentication.
type DocumentClient struct {
	configProvider config.Provider
	logger         domain.Logger
	tokens         domain.TokenSource
	httpClient     *retryablehttp.Client
}

// NewDocumentClient creates a DocumentClient with its own resilient HTTP client.
func NewDocumentClient(configProvider config.Provider, logger domain.Logger, tokens domain.TokenSource) *DocumentClient {
	if configProvider == nil {
		panic("NewDocumentClient: configProvider is nil")
	}
	if logger == nil {
		panic("NewDocumentClient: logger is nil")
	}
	if tokens == nil {
		panic("NewDocumentClient: tokens is nil")
	}
	return &DocumentClient{
		configProvider: configProvider,
		logger:         logger,
		tokens:         tokens,
		httpClient:     newRetryingClient(configProvider.Get().Facturify, logger),
	}
}

// StampCartaPorte submits a carta porte document for stamping.
func (c *DocumentClient) StampCartaPorte(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.send(ctx, "stamp_carta_porte", http.MethodPost, "/api/v1/factura", payload)
}

// Invoice fetches a stamped invoice by its CFDI UUID.
func (c *DocumentClient) Invoice(ctx context.Context, cfdiUUID string) (json.RawMessage, error) {
	return c.send(ctx, "get_invoice", http.MethodGet, "/api/v1/factura/"+url.PathEscape(cfdiUUID), nil)
}

// Clients lists the client records registered for the account.
func (c *DocumentClient) Clients(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = defaultClientPageSize
	}
	if offset < 0 {
		offset = 0
	}
	path := fmt.Sprintf("/api/v1/cliente/?limit=%d&offset=%d", limit, offset)
	return c.send(ctx, "list_clients", http.MethodGet, path, nil)
}

func (c *DocumentClient) send(ctx context.Context, operation, method, path string, payload json.RawMessage) (json.RawMessage, error) {
	ctx = context.WithValue(ctx, contextkeys.OperationKey, operation)

	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		metrics.IncrementProviderRequest(operation, "failure")
		return nil, fmt.Errorf("acquire provider token: %w", err)
	}

	cfg := c.configProvider.Get().Facturify
	headers := map[string]string{"Authorization": "Bearer " + token}
	status, body, err := doJSON(ctx, c.httpClient, operation, method, providerBaseURL(cfg)+path, headers, payload)
	if err != nil {
		metrics.IncrementProviderRequest(operation, "failure")
		return nil, err
	}

	result, err := c.handle(ctx, operation, status, body)
	if err != nil {
		metrics.IncrementProviderRequest(operation, "failure")
		return nil, err
	}
	metrics.IncrementProviderRequest(operation, "success")
	return result, nil
}

// handle normalizes one provider response. The provider reports failures both
// ways: an HTTP error status, and a 200 whose body carries success:false.
// Either way the full payload goes to the log before normalization.
func (c *DocumentClient) handle(ctx context.Context, operation string, status int, body []byte) (json.RawMessage, error) {
	var flags struct {
		Success *bool `json:"success"`
	}
	_ = json.Unmarshal(body, &flags)

	if status >= 400 || (flags.Success != nil && !*flags.Success) {
		c.logger.Error(ctx, "Provider rejected document operation",
			"operation", operation, "status", status, "provider_response", string(body))
		return nil, ParseError(status, body)
	}
	return json.RawMessage(body), nil
}
