package session

import "errors"

// ErrNotFound covers session, room-code and song lookup misses. Resolving
// a room code never distinguishes "never existed" from "expired or ended".
var ErrNotFound = errors.New("not found")

// ErrNotAuthenticated rejects mutations attempted without a resolved user.
var ErrNotAuthenticated = errors.New("user not authenticated")

// PermissionError reports a caller who is not allowed to perform the
// operation. No state is mutated when it is returned.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string { return e.Reason }

func permissionErr(reason string) error { return &PermissionError{Reason: reason} }

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErr(reason string) error { return &ValidationError{Reason: reason} }

// BackendError wraps a persistence failure for a specific action. Local
// state is left untouched when it is returned.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return "backend: " + e.Op + ": " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(op string, err error) error { return &BackendError{Op: op, Err: err} }
