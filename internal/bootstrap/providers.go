package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/facturify"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/logger"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/middleware"
	appnats "gitlab.com/fletera/api/facturify-gateway/internal/adapters/nats"
	appredis "gitlab.com/fletera/api/facturify-gateway/internal/adapters/redis"
	"gitlab.com/fletera/api/facturify-gateway/internal/application"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// AdminAuthMiddleware guards the administrative endpoints. A distinct type so
// Wire can tell it apart from other func(http.Handler) http.Handler values.
type AdminAuthMiddleware func(http.Handler) http.Handler

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily
// for config initialization before the real logger exists. It returns the
// logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			// NewExample never fails; keep the original error visible.
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App holds the wired application. It is assembled by Wire through NewApp and
// run from main via Run.
type App struct {
	configProvider      config.Provider
	logger              domain.Logger
	httpServeMux        *http.ServeMux
	httpServer          *http.Server
	redisClient         *redis.Client
	tokenManager        *application.TokenManager
	documents           domain.CFDIProvider
	companies           domain.CompanyDirectory
	eventPublisher      domain.EventPublisher
	adminAuthMiddleware AdminAuthMiddleware
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	redisClient *redis.Client,
	tokenManager *application.TokenManager,
	documents domain.CFDIProvider,
	companies domain.CompanyDirectory,
	eventPublisher domain.EventPublisher,
	adminAuthMid AdminAuthMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:      cfgProvider,
		logger:              appLogger,
		httpServeMux:        mux,
		httpServer:          server,
		redisClient:         redisClient,
		tokenManager:        tokenManager,
		documents:           documents,
		companies:           companies,
		eventPublisher:      eventPublisher,
		adminAuthMiddleware: adminAuthMid,
	}

	// Adapter-level cleanups (NATS drain, Redis close, logger sync) are
	// aggregated by Wire; this one stops what Run started.
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		app.tokenManager.StopRefreshLoop()
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration. It accepts appCtx so
// the config hot-reload goroutine shuts down with the application.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides an HTTP server configured for graceful
// shutdown. Read and idle timeouts are fixed; only the write timeout is
// configurable because slow provider calls run inside request handlers.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	writeTimeout := 2 * time.Minute
	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function. The
// shared cache is a hard dependency: an unreachable Redis fails startup.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// CredentialStoreProvider provides the Redis-backed credential store.
func CredentialStoreProvider(redisClient *redis.Client, appLogger domain.Logger, cfgProvider config.Provider) domain.CredentialStore {
	return appredis.NewCredentialStoreAdapter(redisClient, appLogger, cfgProvider.Get().Facturify.CacheNamespace)
}

// AuthGatewayProvider provides the provider auth client.
func AuthGatewayProvider(cfgProvider config.Provider, appLogger domain.Logger) domain.AuthGateway {
	return facturify.NewAuthClient(cfgProvider, appLogger)
}

// EventPublisherProvider provides the NATS token-event publisher and its
// drain/close cleanup.
func EventPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*appnats.EventPublisherAdapter, func(), error) {
	return appnats.NewEventPublisherAdapter(ctx, cfgProvider, appLogger)
}

// TokenManagerProvider provides the token lifecycle manager. Exactly one per
// process, which is what keeps the background refresh loop singular.
func TokenManagerProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	store domain.CredentialStore,
	gateway domain.AuthGateway,
	events domain.EventPublisher,
) *application.TokenManager {
	return application.NewTokenManager(appLogger, cfgProvider, store, gateway, events)
}

// DocumentClientProvider provides the stamping client.
func DocumentClientProvider(cfgProvider config.Provider, appLogger domain.Logger, tokens domain.TokenSource) domain.CFDIProvider {
	return facturify.NewDocumentClient(cfgProvider, appLogger, tokens)
}

// CompanyClientProvider provides the issuer directory client.
func CompanyClientProvider(cfgProvider config.Provider, appLogger domain.Logger, tokens domain.TokenSource) domain.CompanyDirectory {
	return facturify.NewCompanyClient(cfgProvider, appLogger, tokens)
}

// AdminAuthMiddlewareProvider provides the API-key guard for admin endpoints.
func AdminAuthMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) AdminAuthMiddleware {
	return middleware.AdminAPIKeyAuthMiddleware(cfgProvider, appLogger)
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure adapters
	RedisClientProvider,
	CredentialStoreProvider,
	EventPublisherProvider,
	wire.Bind(new(domain.EventPublisher), new(*appnats.EventPublisherAdapter)),

	// Provider clients
	AuthGatewayProvider,
	DocumentClientProvider,
	CompanyClientProvider,

	// Application services
	TokenManagerProvider,
	wire.Bind(new(domain.TokenSource), new(*application.TokenManager)),

	// HTTP edge
	AdminAuthMiddlewareProvider,
	NewApp,
)
