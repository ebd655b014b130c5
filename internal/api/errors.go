package api

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedSelection is returned, without any request being sent,
	// when a write selection matches none of the parameter's options.
	ErrUnresolvedSelection = errors.New("selection does not match any option")

	// ErrMissingParameter is returned when a write needs a parameter the
	// system does not expose.
	ErrMissingParameter = errors.New("parameter not available")
)

// AuthError means the portal rejected the credentials or the session could
// not be re-established. The user has to re-enter credentials.
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unauthorized (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: unauthorized (status %d)", e.Op, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError wraps transport failures and per-call timeouts. It is transient.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was the per-call deadline.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) && t.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

// ParseError means a vendor payload could not be decoded or lacked mandatory fields.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
