package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrUnauthorized        ErrorCode = "Unauthorized"        // HTTP 401, admin key missing
	ErrForbidden           ErrorCode = "Forbidden"           // HTTP 403, admin key invalid
	ErrBadRequest          ErrorCode = "BadRequest"          // HTTP 400, e.g. malformed request payload
	ErrProviderAuthFailed  ErrorCode = "ProviderAuthFailed"  // HTTP 401, provider rejected our credentials
	ErrProviderValidation  ErrorCode = "ProviderValidation"  // HTTP 422, provider rejected the payload field-by-field
	ErrProviderRejected    ErrorCode = "ProviderRejected"    // HTTP 502, provider/SAT semantic rejection
	ErrProviderUnavailable ErrorCode = "ProviderUnavailable" // HTTP 503, transport failure after retries
	ErrNotFound            ErrorCode = "NotFound"            // HTTP 404
	ErrInternal            ErrorCode = "InternalServerError" // HTTP 500
)

// ErrorResponse is the standard error format returned to clients as HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}

// AuthError means the provider rejected the configured API credentials
// outright (bad key/secret). It is never retried; someone has to fix the
// credentials.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// NewAuthError creates an AuthError from a provider response.
func NewAuthError(statusCode int, message string) *AuthError {
	return &AuthError{StatusCode: statusCode, Message: message}
}

// IsAuthError checks if an error is an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// TokenInvalidError means the provider rejected the token presented on a
// refresh call because it is stale or otherwise invalid. The lifecycle
// manager reacts with a one-shot obtain-then-refresh fallback.
type TokenInvalidError struct {
	StatusCode int
	Message    string
}

func (e *TokenInvalidError) Error() string {
	return fmt.Sprintf("provider rejected current token (status %d): %s", e.StatusCode, e.Message)
}

// NewTokenInvalidError creates a TokenInvalidError from a provider response.
func NewTokenInvalidError(statusCode int, message string) *TokenInvalidError {
	return &TokenInvalidError{StatusCode: statusCode, Message: message}
}

// IsTokenInvalid checks if an error is a TokenInvalidError.
func IsTokenInvalid(err error) bool {
	var target *TokenInvalidError
	return errors.As(err, &target)
}

// TransientTransportError wraps a network, timeout, or 5xx failure that
// survived the transport-level retry budget. Callers may retry the whole
// operation later; within one call it is final.
type TransientTransportError struct {
	Operation string
	Cause     error
}

func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("transient transport failure during %s: %v", e.Operation, e.Cause)
}

func (e *TransientTransportError) Unwrap() error {
	return e.Cause
}

// NewTransientTransportError wraps cause as a transport-level failure of the
// named operation.
func NewTransientTransportError(operation string, cause error) *TransientTransportError {
	return &TransientTransportError{Operation: operation, Cause: cause}
}

// IsTransientTransport checks if an error is a TransientTransportError.
func IsTransientTransport(err error) bool {
	var target *TransientTransportError
	return errors.As(err, &target)
}

// FieldError is one entry of a provider validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// ExternalValidationError is a normalized field-level validation failure
// reported by the provider. Retrying the same payload cannot succeed, so it
// is never retried; the per-field detail is surfaced verbatim.
type ExternalValidationError struct {
	StatusCode int
	Summary    string
	Fields     []FieldError
}

func (e *ExternalValidationError) Error() string {
	return e.UserMessage()
}

// UserMessage renders the summary with one bullet line per failed field.
func (e *ExternalValidationError) UserMessage() string {
	if len(e.Fields) == 0 {
		return e.Summary
	}
	var b strings.Builder
	b.WriteString(e.Summary)
	b.WriteString(":")
	for _, f := range e.Fields {
		field := f.Field
		if field == "" {
			field = "campo desconocido"
		}
		msg := f.Message
		if msg == "" {
			msg = "error desconocido"
		}
		b.WriteString("\n• ")
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// IsExternalValidation checks if an error is an ExternalValidationError.
func IsExternalValidation(err error) bool {
	var target *ExternalValidationError
	return errors.As(err, &target)
}

// ExternalServiceError is the umbrella for provider/SAT-side rejections that
// carry a human-readable message. Callers see the normalized message and a
// static remediation hint, never the raw payload; the raw payload is kept for
// logging only.
type ExternalServiceError struct {
	StatusCode int
	Code       string
	PAC        string
	Message    string // normalized, user-facing
	SATMessage string // extracted parenthetical detail, if any
	Friendly   string // known-code translation, if any
	Hint       string
	Raw        string // original payload, for logs
}

func (e *ExternalServiceError) Error() string {
	return e.Message
}

// IsExternalService checks if an error is an ExternalServiceError.
func IsExternalService(err error) bool {
	var target *ExternalServiceError
	return errors.As(err, &target)
}
