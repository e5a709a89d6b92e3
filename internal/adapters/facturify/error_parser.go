package facturify

import (
	"encoding/json"
	"fmt"
	"strings"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// remediationHint is appended to every normalized provider error so callers
// always receive an actionable next step alongside the raw diagnosis.
const remediationHint = "Verifique los datos fiscales del documento y reintente el timbrado; si el error persiste, contacte al PAC con el código reportado."

// satFriendlyMessages translates the SAT validation codes we see most often
// into operator-readable Spanish. Unknown codes pass through untranslated.
var satFriendlyMessages = map[string]string{
	"CFDI40147": "El RFC del receptor no se encuentra en la lista de RFC inscritos no cancelados del SAT.",
	"CFDI40148": "El nombre o razón social del receptor no coincide con el registrado en el SAT para ese RFC.",
	"CFDI40158": "El código postal del domicilio fiscal del receptor no coincide con el registrado en el SAT.",
	"CFDI40161": "El régimen fiscal del receptor no corresponde con el registrado en el SAT para ese RFC.",
	"CFDI40167": "El uso del CFDI indicado no es válido para el régimen fiscal del receptor.",
	"CCP20215":  "Alguna ubicación de la Carta Porte tiene datos de domicilio inválidos o incompletos.",
}

// providerErrorEnvelope covers both error body shapes the provider emits: a
// flat service error and a validation report whose errors field is a list.
type providerErrorEnvelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
	PAC     string          `json:"pac"`
	Errors  json.RawMessage `json:"errors"`
}

// ParseError normalizes any provider error payload into the domain taxonomy.
// Bodies with a JSON errors array become ExternalValidationError; every other
// input, JSON or not, becomes ExternalServiceError. The function is total: no
// payload shape causes a panic or a lost message.
func ParseError(statusCode int, body []byte) error {
	var envelope providerErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return parsePlainTextError(statusCode, strings.TrimSpace(string(body)))
	}

	if isJSONArray(envelope.Errors) {
		return parseValidationError(statusCode, envelope)
	}

	satMessage := extractSATMessage(envelope.Message)
	message := envelope.Message
	if satMessage != "" {
		message = "Error del SAT: " + satMessage
	}
	if message == "" {
		message = fallbackMessage(statusCode)
	}

	code := decodeCode(envelope.Code)
	return &domain.ExternalServiceError{
		StatusCode: statusCode,
		Code:       code,
		PAC:        envelope.PAC,
		Message:    message,
		SATMessage: satMessage,
		Friendly:   satFriendlyMessages[code],
		Hint:       remediationHint,
		Raw:        string(body),
	}
}

// parseValidationError builds the per-field report for the list-shaped body.
// Elements that do not decode are dropped rather than failing the whole parse.
func parseValidationError(statusCode int, envelope providerErrorEnvelope) error {
	var fields []domain.FieldError
	if err := json.Unmarshal(envelope.Errors, &fields); err != nil {
		fields = nil
	}
	summary := envelope.Message
	if summary == "" {
		summary = "El proveedor rechazó el documento por errores de validación"
	}
	return &domain.ExternalValidationError{
		StatusCode: statusCode,
		Summary:    summary,
		Fields:     fields,
	}
}

// parsePlainTextError handles non-JSON bodies, typically proxy or gateway
// error pages. A parenthesized SAT detail is still extracted when present.
func parsePlainTextError(statusCode int, text string) error {
	satMessage := extractSATMessage(text)
	message := text
	if satMessage != "" {
		message = satMessage
	}
	if message == "" {
		message = fallbackMessage(statusCode)
	}
	return &domain.ExternalServiceError{
		StatusCode: statusCode,
		Message:    message,
		SATMessage: satMessage,
		Hint:       remediationHint,
		Raw:        text,
	}
}

// extractSATMessage pulls the SAT-level detail the provider buries inside
// parentheses, e.g. "Error no detectado: (SAT: CFDI40147 - ...)". The
// substring runs from the first '(' to the last ')' so nested parentheses in
// the SAT text survive; a leading "SAT:" marker is stripped.
func extractSATMessage(message string) string {
	start := strings.Index(message, "(")
	end := strings.LastIndex(message, ")")
	if start == -1 || end <= start {
		return ""
	}
	inner := strings.TrimSpace(message[start+1 : end])
	inner = strings.TrimSpace(strings.TrimPrefix(inner, "SAT:"))
	return inner
}

// decodeCode renders the provider's code field, which arrives as either a
// JSON string ("CFDI40147") or a bare number (33).
func decodeCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code
	}
	return strings.TrimSpace(string(raw))
}

func fallbackMessage(statusCode int) string {
	return fmt.Sprintf("El proveedor devolvió un error sin detalle (HTTP %d)", statusCode)
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// errorMessage extracts the message field from an error body for embedding in
// auth errors, falling back to the raw text when the body is not JSON.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty provider response"
	}
	return text
}
