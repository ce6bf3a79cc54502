package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call to the auth service.
type Kind string

const (
	KindNetworkFailure    Kind = "network_failure"    // Request never reached the server or no response came back
	KindAuthRejected      Kind = "auth_rejected"      // 401: bad credentials or expired/invalid access token
	KindRefreshRejected   Kind = "refresh_rejected"   // The refresh token itself was refused
	KindValidationFailure Kind = "validation_failure" // 4xx with a message, or rejected before sending
	KindServerFailure     Kind = "server_failure"     // 5xx
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNetworkFailure    = errors.New(string(KindNetworkFailure))
	ErrAuthRejected      = errors.New(string(KindAuthRejected))
	ErrRefreshRejected   = errors.New(string(KindRefreshRejected))
	ErrValidationFailure = errors.New(string(KindValidationFailure))
	ErrServerFailure     = errors.New(string(KindServerFailure))
)

var kindSentinels = map[Kind]error{
	KindNetworkFailure:    ErrNetworkFailure,
	KindAuthRejected:      ErrAuthRejected,
	KindRefreshRejected:   ErrRefreshRejected,
	KindValidationFailure: ErrValidationFailure,
	KindServerFailure:     ErrServerFailure,
}

// Error is a classified auth service failure carrying the server's message, if any.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // Server-provided message, may be empty
	Err     error  // Underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindForStatus maps a non-2xx status to its Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthRejected
	case status >= 500:
		return KindServerFailure
	default:
		return KindValidationFailure
	}
}

// MessageOf returns the server message carried by err, or fallback when there is none.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
