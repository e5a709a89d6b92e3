package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphttp "gitlab.com/fletera/api/facturify-gateway/internal/adapters/http"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/middleware"
	"gitlab.com/fletera/api/facturify-gateway/pkg/safego"
)

// NOTE: The App struct and NewApp function are defined in providers.go for Wire.
// This file should only contain methods for the App struct, like Run().

// Run starts the application: registers routes, launches the background token
// refresh loop, and serves HTTP until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	version := "unknown"
	serviceName := "facturify-gateway"
	if a.configProvider != nil && a.configProvider.Get() != nil {
		configApp := a.configProvider.Get().App
		if configApp.Version != "" {
			version = configApp.Version
		}
		if configApp.ServiceName != "" {
			serviceName = configApp.ServiceName
		}
	}
	a.logger.Info(ctx, "Starting application", "service_name", serviceName, "version", version)

	a.registerRoutes(ctx)

	// The refresh loop keeps a long-lived token perpetually warm so request
	// paths almost always hit the cache.
	a.tokenManager.StartRefreshLoop(ctx)

	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := 30 * time.Second
		if a.configProvider != nil && a.configProvider.Get() != nil {
			configApp := a.configProvider.Get().App
			if configApp.ShutdownTimeoutSeconds > 0 {
				shutdownTimeout = time.Duration(configApp.ShutdownTimeoutSeconds) * time.Second
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop refreshing before the server goes away; in-flight requests can
		// still read the cache while they drain.
		a.tokenManager.StopRefreshLoop()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
	})

	a.logger.Info(ctx, fmt.Sprintf("HTTP server listening on port %d", a.configProvider.Get().Server.HTTPPort))
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info(ctx, "Application shut down gracefully or server closed.")
	return nil
}

// registerRoutes wires every HTTP endpoint. The /api/v1/facturify subtree sits
// behind the admin API key; health, readiness, and metrics stay open.
func (a *App) registerRoutes(ctx context.Context) {
	// Health probes and metrics scrapes stay out of the access log; only the
	// business subtree is logged.
	accessLog := middleware.RequestLogMiddleware(a.logger)
	admin := func(h http.Handler) http.Handler {
		return middleware.RequestIDMiddleware(accessLog(a.adminAuthMiddleware(h)))
	}

	healthHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"OK"}`)
	})
	a.httpServeMux.Handle("GET /health", middleware.RequestIDMiddleware(healthHandler))
	a.httpServeMux.Handle("GET /ready", middleware.RequestIDMiddleware(a.readinessHandler()))
	a.httpServeMux.Handle("GET /metrics", middleware.RequestIDMiddleware(promhttp.Handler()))
	a.logger.Info(ctx, "Prometheus metrics endpoint registered at /metrics")

	// Token lifecycle, 1:1 onto the manager operations.
	a.httpServeMux.Handle("POST /api/v1/facturify/auth/token", admin(apphttp.ObtainTokenHandler(a.tokenManager, a.logger)))
	a.httpServeMux.Handle("POST /api/v1/facturify/auth/token/refresh", admin(apphttp.RefreshTokenHandler(a.tokenManager, a.logger)))
	a.httpServeMux.Handle("GET /api/v1/facturify/auth/token/status", admin(apphttp.TokenStatusHandler(a.tokenManager, a.logger)))
	a.httpServeMux.Handle("GET /api/v1/facturify/auth/token", admin(apphttp.ValidTokenHandler(a.tokenManager, a.logger)))

	// Issuer directory.
	a.httpServeMux.Handle("GET /api/v1/facturify/empresa/{$}", admin(apphttp.ListCompaniesHandler(a.companies, a.logger)))
	a.httpServeMux.Handle("GET /api/v1/facturify/empresa/rfc/{rfc}", admin(apphttp.CompanyByRFCHandler(a.companies, a.logger)))

	// Document passthrough.
	a.httpServeMux.Handle("POST /api/v1/facturify/cfdi/carta-porte", admin(apphttp.StampCartaPorteHandler(a.documents, a.logger)))
	a.httpServeMux.Handle("GET /api/v1/facturify/cfdi/{uuid}", admin(apphttp.GetInvoiceHandler(a.documents, a.logger)))
	a.httpServeMux.Handle("GET /api/v1/facturify/clients", admin(apphttp.ListClientsHandler(a.documents, a.logger)))

	a.logger.Info(ctx, "Facturify gateway endpoints registered")
}

// readinessHandler reports READY only when the shared Redis cache and the
// NATS event connection are both reachable.
func (a *App) readinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ready := true
		dependenciesStatus := make(map[string]string)

		if a.eventPublisher != nil && a.eventPublisher.NatsConn() != nil {
			if a.eventPublisher.NatsConn().Status() == nats.CONNECTED {
				dependenciesStatus["nats"] = "connected"
			} else {
				dependenciesStatus["nats"] = "disconnected"
				ready = false
				a.logger.Warn(r.Context(), "Readiness check failed: NATS disconnected", "status", a.eventPublisher.NatsConn().Status().String())
			}
		} else {
			dependenciesStatus["nats"] = "not_configured"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: NATS connection not configured")
		}

		if a.redisClient != nil {
			if err := a.redisClient.Ping(r.Context()).Err(); err == nil {
				dependenciesStatus["redis"] = "connected"
			} else {
				dependenciesStatus["redis"] = "disconnected"
				ready = false
				a.logger.Warn(r.Context(), "Readiness check failed: Redis ping failed", "error", err.Error())
			}
		} else {
			dependenciesStatus["redis"] = "not_configured"
			ready = false
			a.logger.Warn(r.Context(), "Readiness check failed: Redis client not configured")
		}

		response := struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}{
			Dependencies: dependenciesStatus,
		}

		if ready {
			response.Status = "READY"
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = "NOT_READY"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			a.logger.Error(r.Context(), "Failed to encode readiness response", "error", err)
		}
	}
}
