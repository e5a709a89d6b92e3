package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/fletera/api/facturify-gateway/internal/application" // For application.ErrCacheMiss
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
	"gitlab.com/fletera/api/facturify-gateway/pkg/rediskeys"
)

// CredentialStoreAdapter implements the domain.CredentialStore interface
// using Redis. It keeps two keys under one namespace: the token itself and
// the expires_in the provider reported at issuance. Both carry the same TTL
// so they disappear together.
type CredentialStoreAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	tokenKey    string
	expiryKey   string
}

// NewCredentialStoreAdapter creates a new instance of CredentialStoreAdapter.
func NewCredentialStoreAdapter(redisClient *redis.Client, logger domain.Logger, namespace string) *CredentialStoreAdapter {
	if redisClient == nil {
		// Panicking here because this is a critical setup error.
		panic("redisClient cannot be nil in NewCredentialStoreAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCredentialStoreAdapter")
	}
	if namespace == "" {
		panic("namespace cannot be empty in NewCredentialStoreAdapter")
	}
	return &CredentialStoreAdapter{
		redisClient: redisClient,
		logger:      logger,
		tokenKey:    rediskeys.TokenKey(namespace),
		expiryKey:   rediskeys.TokenExpiryKey(namespace),
	}
}

// Token retrieves the cached bearer token.
func (a *CredentialStoreAdapter) Token(ctx context.Context) (string, error) {
	val, err := a.redisClient.Get(ctx, a.tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Provider token cache miss", "key", a.tokenKey)
		return "", application.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get provider token from Redis", "key", a.tokenKey, "error", err.Error())
		return "", fmt.Errorf("redis GET for token key '%s' failed: %w", a.tokenKey, err)
	}
	return val, nil
}

// TTL reports the remaining lifetime of the cached token. A missing key maps
// to the cache-miss sentinel so callers can tell "no token" from "expiring".
func (a *CredentialStoreAdapter) TTL(ctx context.Context) (time.Duration, error) {
	ttl, err := a.redisClient.TTL(ctx, a.tokenKey).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to read provider token TTL", "key", a.tokenKey, "error", err.Error())
		return 0, fmt.Errorf("redis TTL for token key '%s' failed: %w", a.tokenKey, err)
	}
	// go-redis reports -2 for a missing key and -1 for a key without expiry.
	switch {
	case ttl == -2:
		return 0, application.ErrCacheMiss
	case ttl < 0:
		return 0, nil
	}
	return ttl, nil
}

// OriginalExpiry retrieves the expires_in recorded when the cached token was
// issued.
func (a *CredentialStoreAdapter) OriginalExpiry(ctx context.Context) (int64, error) {
	val, err := a.redisClient.Get(ctx, a.expiryKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, application.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get original expiry from Redis", "key", a.expiryKey, "error", err.Error())
		return 0, fmt.Errorf("redis GET for expiry key '%s' failed: %w", a.expiryKey, err)
	}
	expiry, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		a.logger.Error(ctx, "Cached original expiry is not a number", "key", a.expiryKey, "value", val)
		return 0, fmt.Errorf("parse original expiry '%s': %w", val, err)
	}
	return expiry, nil
}

// Store writes the credential and its reported expiry in one transaction,
// both set to expire after cred.ExpiresIn seconds.
func (a *CredentialStoreAdapter) Store(ctx context.Context, cred *domain.Credential) error {
	if cred == nil || cred.Token == "" {
		return fmt.Errorf("refusing to store empty credential")
	}
	ttl := time.Duration(cred.ExpiresIn) * time.Second
	_, err := a.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, a.tokenKey, cred.Token, ttl)
		pipe.Set(ctx, a.expiryKey, strconv.FormatInt(cred.ExpiresIn, 10), ttl)
		return nil
	})
	if err != nil {
		a.logger.Error(ctx, "Failed to store provider credential in Redis", "key", a.tokenKey, "error", err.Error())
		return fmt.Errorf("redis SET for token keys failed: %w", err)
	}
	a.logger.Debug(ctx, "Stored provider credential", "key", a.tokenKey, "kind", string(cred.Kind), "ttl", ttl.String())
	return nil
}
