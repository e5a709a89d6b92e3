package facturify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// AuthClient talks to the provider's authentication endpoints. It translates
// HTTP responses into the domain error taxonomy and never touches the cache;
// persisting credentials is the lifecycle manager's job.
type AuthClient struct {
	configProvider config.Provider
	logger         domain.Logger
	httpClient     *retryablehttp.Client
}

// NewAuthClient creates an AuthClient with its own resilient HTTP client.
func NewAuthClient(configProvider config.Provider, logger domain.Logger) *AuthClient {
	if configProvider == nil {
		panic("NewAuthClient: configProvider is nil")
	}
	if logger == nil {
		panic("NewAuthClient: logger is nil")
	}
	return &AuthClient{
		configProvider: configProvider,
		logger:         logger,
		httpClient:     newRetryingClient(configProvider.Get().Facturify, logger),
	}
}

// authEnvelope is the provider's 200 response for both auth endpoints.
type authEnvelope struct {
	Message string `json:"message"`
	JWT     struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
	} `json:"jwt"`
}

// Obtain exchanges the configured API key/secret for a short-lived token.
func (c *AuthClient) Obtain(ctx context.Context) (*domain.Credential, error) {
	cfg := c.configProvider.Get().Facturify
	payload, err := json.Marshal(map[string]string{
		"api_key":    cfg.APIKey,
		"api_secret": cfg.APISecret,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal auth payload: %w", err)
	}

	status, body, err := doJSON(ctx, c.httpClient, "obtain_token", http.MethodPost,
		providerBaseURL(cfg)+"/api/v1/auth", nil, payload)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return c.decodeCredential(body, domain.CredentialInitial)
	case http.StatusUnauthorized:
		c.logger.Error(ctx, "Provider rejected the configured API credentials", "status", status)
		return nil, domain.NewAuthError(status, errorMessage(body))
	default:
		c.logger.Error(ctx, "Unexpected provider response obtaining token",
			"status", status, "provider_response", string(body))
		return nil, ParseError(status, body)
	}
}

// Refresh exchanges the current token for a long-lived one. The provider
// answering 401 means the presented token is stale, which the lifecycle
// manager resolves with its obtain-then-refresh fallback.
func (c *AuthClient) Refresh(ctx context.Context, currentToken string) (*domain.Credential, error) {
	cfg := c.configProvider.Get().Facturify
	headers := map[string]string{"Authorization": "Bearer " + currentToken}

	status, body, err := doJSON(ctx, c.httpClient, "refresh_token", http.MethodPost,
		providerBaseURL(cfg)+"/api/v1/token/refresh", headers, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return c.decodeCredential(body, domain.CredentialRefreshed)
	case http.StatusUnauthorized:
		c.logger.Warn(ctx, "Provider rejected the current token on refresh", "status", status)
		return nil, domain.NewTokenInvalidError(status, errorMessage(body))
	default:
		c.logger.Error(ctx, "Unexpected provider response refreshing token",
			"status", status, "provider_response", string(body))
		return nil, ParseError(status, body)
	}
}

func (c *AuthClient) decodeCredential(body []byte, kind domain.CredentialKind) (*domain.Credential, error) {
	var envelope authEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if envelope.JWT.Token == "" || envelope.JWT.ExpiresIn <= 0 {
		return nil, fmt.Errorf("auth response missing token or expiry")
	}
	return &domain.Credential{
		Token:     envelope.JWT.Token,
		ExpiresIn: envelope.JWT.ExpiresIn,
		Kind:      kind,
		IssuedAt:  time.Now().UTC(),
	}, nil
}
