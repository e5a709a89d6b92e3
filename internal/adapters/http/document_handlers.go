package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

const (
	defaultClientsLimit = 50
	maxClientsLimit     = 100
)

// StampCartaPorteHandler submits a carta porte payload for stamping. The body
// passes through opaque; the provider owns its schema.
func StampCartaPorteHandler(provider domain.CFDIProvider, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Warn(r.Context(), "Failed to read carta porte payload", "error", err.Error())
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if len(bytes.TrimSpace(payload)) == 0 || !json.Valid(payload) {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", "Request body must be a JSON document.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		result, err := provider.StampCartaPorte(r.Context(), payload)
		if err != nil {
			logger.Error(r.Context(), "Carta porte stamping failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeRawJSON(w, logger, r, http.StatusCreated, result)
	}
}

// GetInvoiceHandler fetches a stamped invoice by CFDI UUID.
func GetInvoiceHandler(provider domain.CFDIProvider, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfdiUUID := r.PathValue("uuid")
		if cfdiUUID == "" {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid CFDI UUID", "UUID path parameter is required.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		result, err := provider.Invoice(r.Context(), cfdiUUID)
		if err != nil {
			logger.Error(r.Context(), "Invoice fetch failed", "cfdi_uuid", cfdiUUID, "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeRawJSON(w, logger, r, http.StatusOK, result)
	}
}

// ListClientsHandler returns the provider's client records, paginated.
func ListClientsHandler(provider domain.CFDIProvider, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", defaultClientsLimit)
		if err != nil || limit < 1 || limit > maxClientsLimit {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid limit",
				"limit must be an integer between 1 and 100.").WriteJSON(w, http.StatusBadRequest)
			return
		}
		offset, err := queryInt(r, "offset", 0)
		if err != nil || offset < 0 {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid offset",
				"offset must be a non-negative integer.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		result, err := provider.Clients(r.Context(), limit, offset)
		if err != nil {
			logger.Error(r.Context(), "Client listing failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeRawJSON(w, logger, r, http.StatusOK, result)
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
