package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrCancelled marks an operation that was superseded or torn down.
	ErrCancelled = errors.New("operation cancelled")

	// ErrIncompleteStream is returned when the body ends before a [DONE] frame.
	ErrIncompleteStream = &ProtocolError{Reason: "stream ended before completion marker"}

	// ErrNoBody is returned for a response that carries no readable body.
	ErrNoBody = &ProtocolError{Reason: "response has no body"}
)

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError means the call could not be completed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError means the stream was malformed or incomplete.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// ServerError carries an explicit failure from the remote service, either an
// [ERROR] frame (StatusCode 0) or a non-success response status.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsCancelled reports whether err stems from cancellation rather than failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Reason converts an operation error into the single message shown to the user.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var (
		serverErr   *ServerError
		protocolErr *ProtocolError
		networkErr  *NetworkError
	)
	switch {
	case errors.As(err, &serverErr):
		if serverErr.Message != "" {
			return serverErr.Message
		}
		if serverErr.StatusCode != 0 {
			return http.StatusText(serverErr.StatusCode)
		}
		return "the summarization service reported an error"
	case errors.As(err, &protocolErr):
		return "incomplete response from the summarization service: " + protocolErr.Reason
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return "the request timed out"
	case errors.As(err, &networkErr):
		return "could not reach the summarization service: " + networkErr.Err.Error()
	default:
		return err.Error()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
