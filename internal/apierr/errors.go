// Package apierr defines the structured error taxonomy used at the request
// admission boundary. Internal code returns an *Error carrying a Kind; the
// HTTP layer (internal/http/handlers) is the single translator from Kind to
// status code, per the propagation policy: "Handlers map internal results
// to HTTP codes at the outer boundary."
package apierr

import "net/http"

// Kind is a closed set of error categories. It replaces ad-hoc string error
// codes with a small tagged variant.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindUnsupportedMedia    Kind = "unsupported_media_type"
	KindNotAcceptable       Kind = "not_acceptable"
	KindRateLimited         Kind = "rate_limited"
	KindServiceUnavailable  Kind = "service_unavailable"
	KindNotFound            Kind = "not_found"
	KindInternal            Kind = "internal"
)

// Error is a structured, HTTP-translatable application error.
type Error struct {
	Kind       Kind
	Message    string
	Details    any
	RetryAfter int // seconds; 0 means "no Retry-After header"
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps Kind to the response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case KindNotAcceptable:
		return http.StatusNotAcceptable
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithRetryAfter returns a copy of e with Retry-After (seconds) attached.
// The package-level sentinels (ErrRateLimited, etc.) are shared across
// concurrent requests, so this never mutates the receiver.
func (e *Error) WithRetryAfter(secs int) *Error {
	cp := *e
	cp.RetryAfter = secs
	return &cp
}

// WithDetails returns a copy of e with arbitrary structured details
// attached, for the same reason WithRetryAfter copies rather than mutates.
func (e *Error) WithDetails(d any) *Error {
	cp := *e
	cp.Details = d
	return &cp
}

var (
	ErrBadRequest         = New(KindBadRequest, "bad request")
	ErrUnsupportedMedia   = New(KindUnsupportedMedia, "unsupported media type")
	ErrNotAcceptable      = New(KindNotAcceptable, "not acceptable")
	ErrRateLimited        = New(KindRateLimited, "rate limited")
	ErrServiceUnavailable = New(KindServiceUnavailable, "service unavailable")
	ErrNotFound           = New(KindNotFound, "not found")
)
