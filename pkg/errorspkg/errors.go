// Package errorspkg provides common app errors.
package errorspkg

import "errors"

var (
	// ErrInternal indicates internal server error.
	ErrInternal = errors.New("internal")
	// ErrUnavailable indicates that the durable store cannot be reached.
	// The call failed as a whole; retrying is the caller's decision.
	ErrUnavailable = errors.New("store unavailable")
)
