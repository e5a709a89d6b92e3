package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// EventIDKey is the context key for storing and retrieving an event ID.
	EventIDKey contextKey = "event_id"

	// OperationKey is the context key for the provider operation in flight
	// (e.g. "obtain_token", "stamp_carta_porte").
	OperationKey contextKey = "operation"

	// CompanyRFCKey is the context key for the RFC of the company a request
	// is acting on behalf of.
	CompanyRFCKey contextKey = "company_rfc"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
