package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// writeJSON writes v with the given status. Encode failures are logged; the
// status line is already gone by then.
func writeJSON(w http.ResponseWriter, logger domain.Logger, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(r.Context(), "Failed to encode response", "error", err.Error(), "path", r.URL.Path)
	}
}

// writeRawJSON passes a provider payload through untouched.
func writeRawJSON(w http.ResponseWriter, logger domain.Logger, r *http.Request, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logger.Error(r.Context(), "Failed to write provider payload", "error", err.Error(), "path", r.URL.Path)
	}
}

// writeProviderError maps the domain error taxonomy onto HTTP statuses: auth
// failures 401, validation 422, provider rejections 502, exhausted transport
// 503, anything else 500.
func writeProviderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ExternalValidationError
	var serviceErr *domain.ExternalServiceError
	var transportErr *domain.TransientTransportError

	switch {
	case domain.IsAuthError(err), domain.IsTokenInvalid(err):
		domain.NewErrorResponse(domain.ErrProviderAuthFailed,
			"El proveedor rechazó las credenciales", err.Error()).WriteJSON(w, http.StatusUnauthorized)
	case errors.As(err, &validationErr):
		domain.NewErrorResponse(domain.ErrProviderValidation,
			validationErr.UserMessage(), "").WriteJSON(w, http.StatusUnprocessableEntity)
	case errors.As(err, &serviceErr):
		details := serviceErr.Hint
		if serviceErr.Friendly != "" {
			details = serviceErr.Friendly + " " + serviceErr.Hint
		}
		domain.NewErrorResponse(domain.ErrProviderRejected,
			serviceErr.Message, details).WriteJSON(w, http.StatusBadGateway)
	case errors.As(err, &transportErr):
		domain.NewErrorResponse(domain.ErrProviderUnavailable,
			"El proveedor no está disponible, intente más tarde", transportErr.Error()).WriteJSON(w, http.StatusServiceUnavailable)
	default:
		domain.NewErrorResponse(domain.ErrInternal,
			"Internal server error", "").WriteJSON(w, http.StatusInternalServerError)
	}
}
