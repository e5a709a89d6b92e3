package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// ProviderTokenGenerator builds opaque bearer tokens shaped like the ones the
// provider issues: three base64url segments. The gateway never decodes
// tokens, so only shape and size matter for benchmarks.
type ProviderTokenGenerator struct {
	signatureBytes int
	tokenCounter   int64
}

// NewProviderTokenGenerator creates a generator whose tokens carry a
// signature segment of signatureBytes random bytes.
func NewProviderTokenGenerator(signatureBytes int) (*ProviderTokenGenerator, error) {
	if signatureBytes <= 0 {
		return nil, fmt.Errorf("signature size must be positive, got %d", signatureBytes)
	}
	return &ProviderTokenGenerator{signatureBytes: signatureBytes}, nil
}

// GenerateToken creates one provider-shaped bearer token
func (tg *ProviderTokenGenerator) GenerateToken() (string, error) {
	n := atomic.AddInt64(&tg.tokenCounter, 1)

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("failed to build token header: %w", err)
	}

	claims, err := json.Marshal(map[string]interface{}{
		"sub": fmt.Sprintf("benchmark-account-%d", n),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build token claims: %w", err)
	}

	signature := make([]byte, tg.signatureBytes)
	if _, err := rand.Read(signature); err != nil {
		return "", fmt.Errorf("failed to generate token signature: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(claims) + "." +
		base64.RawURLEncoding.EncodeToString(signature), nil
}

// GenerateTokens creates n distinct provider-shaped bearer tokens
func (tg *ProviderTokenGenerator) GenerateTokens(n int) ([]string, error) {
	tokens := make([]string, 0, n)
	for i := 0; i < n; i++ {
		token, err := tg.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token %d of %d: %w", i+1, n, err)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
