package order

import "context"

// AuthorizationResult is the payment authority response to an authorization
// request. Payload is returned to callers verbatim.
type AuthorizationResult struct {
	ExternalID string
	Payload    []byte
	StatusCode int
}

// CaptureResult is the payment authority response to a capture request.
type CaptureResult struct {
	ExternalID string
	Payload    []byte
	StatusCode int
}

// Gateway is the contract over the external payment authority.
//
// Implementations report transport failures and authority rejections as
// errors; they do not interpret the authority's business codes.
type Gateway interface {
	CreateAuthorization(ctx context.Context, cart Cart) (*AuthorizationResult, error)
	CaptureAuthorization(ctx context.Context, externalID string) (*CaptureResult, error)
}
