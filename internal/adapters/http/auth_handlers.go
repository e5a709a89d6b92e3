package http

import (
	"net/http"

	"gitlab.com/fletera/api/facturify-gateway/internal/application"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// jwtBlock mirrors the provider's jwt envelope on auth responses.
type jwtBlock struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// AuthResponse is the payload for the obtain and refresh endpoints.
type AuthResponse struct {
	Message string   `json:"message"`
	JWT     jwtBlock `json:"jwt"`
}

// ValidTokenResponse is the payload for the valid-token endpoint.
type ValidTokenResponse struct {
	Token string `json:"token"`
	TTL   int64  `json:"ttl"`
}

// ObtainTokenHandler forces a fresh credential exchange and caches the result.
func ObtainTokenHandler(manager *application.TokenManager, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := manager.Obtain(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Obtain token request failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, AuthResponse{
			Message: "Token obtenido y almacenado en caché",
			JWT:     jwtBlock{Token: cred.Token, ExpiresIn: cred.ExpiresIn},
		})
	}
}

// RefreshTokenHandler forces a refresh of the cached token, falling back to a
// fresh obtain when the provider rejects the current one.
func RefreshTokenHandler(manager *application.TokenManager, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := manager.Refresh(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Refresh token request failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, AuthResponse{
			Message: "Token renovado y almacenado en caché",
			JWT:     jwtBlock{Token: cred.Token, ExpiresIn: cred.ExpiresIn},
		})
	}
}

// TokenStatusHandler reports the cached token's state without triggering any
// provider call.
func TokenStatusHandler(manager *application.TokenManager, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := manager.Status(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Token status request failed", "error", err.Error())
			domain.NewErrorResponse(domain.ErrInternal, "Internal server error", "").WriteJSON(w, http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, status)
	}
}

// ValidTokenHandler returns a currently valid token, bootstrapping one from
// the provider if the cache is empty.
func ValidTokenHandler(manager *application.TokenManager, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := manager.ValidToken(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Valid token request failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		status, err := manager.Status(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Token status lookup after acquisition failed", "error", err.Error())
			domain.NewErrorResponse(domain.ErrInternal, "Internal server error", "").WriteJSON(w, http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, ValidTokenResponse{Token: token, TTL: status.TTLSeconds})
	}
}
