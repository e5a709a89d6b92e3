package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// CompanyListResponse wraps the provider's issuer listing.
type CompanyListResponse struct {
	Data []json.RawMessage `json:"data"`
}

// CompanyResponse wraps a single issuer record.
type CompanyResponse struct {
	Data json.RawMessage `json:"data"`
}

// ListCompaniesHandler returns every issuer company registered with the
// provider.
func ListCompaniesHandler(directory domain.CompanyDirectory, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := directory.Companies(r.Context())
		if err != nil {
			logger.Error(r.Context(), "Company listing request failed", "error", err.Error())
			writeProviderError(w, err)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, CompanyListResponse{Data: page.Data})
	}
}

// CompanyByRFCHandler looks an issuer up by RFC; 404 when no company matches.
func CompanyByRFCHandler(directory domain.CompanyDirectory, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rfc := strings.TrimSpace(r.PathValue("rfc"))
		if rfc == "" {
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid RFC", "RFC path parameter is required.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		company, err := directory.CompanyByRFC(r.Context(), rfc)
		if err != nil {
			logger.Error(r.Context(), "Company lookup by RFC failed", "rfc", rfc, "error", err.Error())
			writeProviderError(w, err)
			return
		}
		if company == nil {
			domain.NewErrorResponse(domain.ErrNotFound, "Empresa no encontrada",
				fmt.Sprintf("No existe una empresa con RFC %q.", strings.ToUpper(rfc))).WriteJSON(w, http.StatusNotFound)
			return
		}
		writeJSON(w, logger, r, http.StatusOK, CompanyResponse{Data: company})
	}
}
