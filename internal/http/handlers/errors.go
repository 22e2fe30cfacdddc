// Package handlers defines HTTP-layer error codes used across all API
// endpoints. These mirror internal/apierr.Kind so the wire-level "code"
// field and the internal error taxonomy never drift apart.
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnsupportedMedia   = "unsupported_media_type"
	ErrCodeNotAcceptable      = "not_acceptable"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeInternal           = "internal"
)
