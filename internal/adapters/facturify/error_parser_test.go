package facturify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

func TestParseErrorExtractsSATMessage(t *testing.T) {
	body := []byte(`{"success": false, "message": "Error no detectado: (SAT: X.)", "code": "CFDI40147"}`)

	err := ParseError(502, body)
	require.Error(t, err)

	var serviceErr *domain.ExternalServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "Error del SAT: X.", serviceErr.Message)
	assert.Equal(t, "X.", serviceErr.SATMessage)
	assert.Equal(t, "CFDI40147", serviceErr.Code)
	assert.NotEmpty(t, serviceErr.Hint, "normalized errors always carry the remediation hint")
	assert.NotEmpty(t, serviceErr.Friendly, "known SAT codes get a translation")
	assert.Equal(t, string(body), serviceErr.Raw, "the raw payload is retained for logging")
}

func TestParseErrorBuildsFieldReport(t *testing.T) {
	body := []byte(`{"code": 33, "message": "La factura no es válida", "errors": [{"field": "factura.serie", "message": "La serie que envió, no existe.", "code": 34}]}`)

	err := ParseError(422, body)
	require.Error(t, err)

	var validationErr *domain.ExternalValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.UserMessage(), "• factura.serie: La serie que envió, no existe.")
	assert.Equal(t, "La factura no es válida", validationErr.Summary)
	require.Len(t, validationErr.Fields, 1)
	assert.Equal(t, "factura.serie", validationErr.Fields[0].Field)
	assert.Equal(t, 34, validationErr.Fields[0].Code)
}

func TestParseErrorFlatBodyVariants(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "MessageWithoutParenthetical",
			status:      502,
			body:        `{"success": false, "message": "Timbrado no disponible", "code": "PAC01", "pac": "facturify"}`,
			wantMessage: "Timbrado no disponible",
			wantCode:    "PAC01",
		},
		{
			name:        "NumericCode",
			status:      502,
			body:        `{"success": false, "message": "Error interno", "code": 33}`,
			wantMessage: "Error interno",
			wantCode:    "33",
		},
		{
			name:        "ParentheticalWithoutSATPrefix",
			status:      502,
			body:        `{"success": false, "message": "Rechazo (el certificado expiró)"}`,
			wantMessage: "Error del SAT: el certificado expiró",
			wantCode:    "",
		},
		{
			name:        "EmptyObject",
			status:      500,
			body:        `{}`,
			wantMessage: "El proveedor devolvió un error sin detalle (HTTP 500)",
			wantCode:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseError(tt.status, []byte(tt.body))
			var serviceErr *domain.ExternalServiceError
			require.True(t, errors.As(err, &serviceErr))
			assert.Equal(t, tt.wantMessage, serviceErr.Message)
			assert.Equal(t, tt.wantCode, serviceErr.Code)
			assert.Equal(t, tt.status, serviceErr.StatusCode)
		})
	}
}

func TestParseErrorPlainTextFallback(t *testing.T) {
	err := ParseError(503, []byte("upstream connect error or disconnect"))

	var serviceErr *domain.ExternalServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "upstream connect error or disconnect", serviceErr.Message)
	assert.Empty(t, serviceErr.SATMessage)
}

func TestParseErrorPlainTextWithParenthetical(t *testing.T) {
	err := ParseError(502, []byte("stamping rejected (SAT: CFDI40147 - RFC no registrado)"))

	var serviceErr *domain.ExternalServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "CFDI40147 - RFC no registrado", serviceErr.Message)
	assert.Equal(t, "CFDI40147 - RFC no registrado", serviceErr.SATMessage)
}

func TestParseErrorEmptyBody(t *testing.T) {
	err := ParseError(500, nil)

	var serviceErr *domain.ExternalServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "El proveedor devolvió un error sin detalle (HTTP 500)", serviceErr.Message)
}

func TestParseErrorValidationWithoutSummary(t *testing.T) {
	body := []byte(`{"errors": [{"field": "receptor.rfc", "message": "RFC inválido"}]}`)

	err := ParseError(422, body)
	var validationErr *domain.ExternalValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.NotEmpty(t, validationErr.Summary)
	assert.Contains(t, validationErr.UserMessage(), "• receptor.rfc: RFC inválido")
}

func TestParseErrorIsTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.IntRange(400, 599).Draw(t, "status")
		body := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "body")

		err := ParseError(status, body)
		if err == nil {
			t.Fatalf("ParseError returned nil for body %q", body)
		}

		var validationErr *domain.ExternalValidationError
		var serviceErr *domain.ExternalServiceError
		switch {
		case errors.As(err, &validationErr):
			if validationErr.UserMessage() == "" {
				t.Fatalf("empty user message for body %q", body)
			}
		case errors.As(err, &serviceErr):
			if serviceErr.Message == "" {
				t.Fatalf("empty message for body %q", body)
			}
		default:
			t.Fatalf("ParseError produced an unclassified error %T for body %q", err, body)
		}
	})
}

func TestExtractSATMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"SATPrefix", "Error no detectado: (SAT: X.)", "X."},
		{"NoPrefix", "fallo (detalle del error)", "detalle del error"},
		{"NestedParens", "err (SAT: usar (A) o (B))", "usar (A) o (B)"},
		{"NoParens", "sin detalle", ""},
		{"UnbalancedOpen", "abierto (sin cierre", ""},
		{"UnbalancedClose", "cierre) sin apertura (", ""},
		{"Empty", "", ""},
		{"EmptyParens", "nada ()", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSATMessage(tt.message))
		})
	}
}
