package mwapi

import (
	"fmt"
)

// TransportError reports a failure below the JSON layer: connection
// refusal, DNS failure, timeout, or a non-2xx HTTP status. Retryable
// transport errors are retried by the Session per its backoff policy.
type TransportError struct {
	// Op is the operation that failed ("send" or "read").
	Op string

	// Status is the HTTP status code when the failure was a non-2xx
	// response, zero otherwise.
	Status int

	// Timeout is true when the underlying failure was a deadline.
	Timeout bool

	// Retryable marks the error as a transient fault.
	Retryable bool

	Err error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport %s: unexpected status %d: %v", e.Op, e.Status, e.Err)
	}
	if e.Timeout {
		return fmt.Sprintf("transport %s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that could not be decoded
// as JSON. Snippet carries a truncated prefix of the raw body for
// diagnostics. Never retried.
type MalformedResponseError struct {
	Snippet string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("could not decode response as JSON: %v: %q", e.Err, e.Snippet)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// APIError is a logical error reported by the server inside a well-formed
// envelope. Detail holds the raw error descriptor as decoded from JSON.
type APIError struct {
	Code   string
	Info   string
	Detail map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

// LoginError reports an authentication handshake that the server rejected.
type LoginError struct {
	Status  string
	Message string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s -- %s", e.Status, e.Message)
}

// ClientInteractionError reports a login handshake that needs user input
// to proceed (captcha, two-factor token). LoginToken must be passed to
// ContinueLogin together with the requested fields.
type ClientInteractionError struct {
	LoginToken string
	Message    string
	Requests   []map[string]any
}

func (e *ClientInteractionError) Error() string {
	return fmt.Sprintf("login requires interaction: %s", e.Message)
}
