package domain

import (
	"context"
	"encoding/json"
)

// CFDIProvider is the outbound port for the provider's stamping endpoints.
// Payloads are opaque JSON: this service owns delivery, retries, and error
// normalization, not document construction.
type CFDIProvider interface {
	// StampCartaPorte submits a carta porte document for stamping.
	StampCartaPorte(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

	// Invoice fetches a stamped invoice by its CFDI UUID.
	Invoice(ctx context.Context, cfdiUUID string) (json.RawMessage, error)

	// Clients lists the client records registered for the account.
	Clients(ctx context.Context, limit, offset int) (json.RawMessage, error)
}

// CompanyPage is the provider's paginated issuer listing. Items stay opaque;
// only the RFC is inspected, for directory lookups.
type CompanyPage struct {
	Data []json.RawMessage `json:"data"`
}

// CompanyDirectory is the outbound port for the provider's issuer (empresa)
// records.
type CompanyDirectory interface {
	// Companies fetches all issuer companies registered with the provider.
	Companies(ctx context.Context) (*CompanyPage, error)

	// CompanyByRFC finds the company whose RFC matches rfc after trim/upper
	// normalization. Returns (nil, nil) when no company matches.
	CompanyByRFC(ctx context.Context, rfc string) (json.RawMessage, error)
}
