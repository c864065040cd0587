// Package serr defines service errors that carry an HTTP status and a
// client-safe message. The wrapped cause is for logs only and must never
// reach a response body.
package serr

import "net/http"

type ServiceError struct {
	Err        error
	StatusCode int
	Msg        string
	Env        map[string]any
}

func New(err error, status int, msg string) *ServiceError {
	return &ServiceError{
		Err:        err,
		StatusCode: status,
		Msg:        msg,
		Env:        make(map[string]any),
	}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UpstreamAuth marks a failed code exchange or identity fetch.
// Authorization codes are single-use, so these are never retried.
func UpstreamAuth(err error) *ServiceError {
	return New(err, http.StatusUnauthorized, "authentication failed")
}

// Linkage marks a persistence failure during find-or-create.
func Linkage(err error) *ServiceError {
	return New(err, http.StatusInternalServerError, "failed to resolve user")
}

// SessionVerification marks a missing, malformed, forged or expired
// session credential. All sub-causes surface identically to the client.
func SessionVerification(err error) *ServiceError {
	return New(err, http.StatusUnauthorized, "unauthorized")
}
