package backend

import (
	"errors"
	"fmt"
)

// Common facade errors
var (
	// ErrNotFound is returned when a single-row read matches no rows. It is
	// distinguished from other failures so callers can treat a missing
	// profile row as "not yet provisioned" rather than an outage.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when the remote service rejects the
	// caller's credentials or session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSession is returned by operations that require a signed-in
	// session when none is held.
	ErrNoSession = errors.New("no active session")

	// ErrNotConfigured is returned when the client was constructed without
	// valid backend settings.
	ErrNotConfigured = errors.New("backend is not configured")
)

// pgrstNoRows is the PostgREST error code for a single-row read that
// matched no rows.
const pgrstNoRows = "PGRST116"

// apiError is the error payload returned by the remote service.
type apiError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Status           int    `json:"-"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = e.ErrorDescription
	}
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("backend: %s (status %d)", msg, e.Status)
}
