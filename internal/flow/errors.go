package flow

import "errors"

// Validation errors. They are returned before any network or crypto call.
var (
	ErrEmptyMessage     = errors.New("please enter a message")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrMissingID        = errors.New("message id is required")
	ErrMissingSecret    = errors.New("password or key is required")
)

var (
	// ErrNotFound covers missing, expired and already burned messages alike.
	ErrNotFound = errors.New("message not found or destroyed")
	// ErrWrongKey does not tell a wrong secret apart from corrupted data.
	ErrWrongKey = errors.New("wrong password / invalid key")
	ErrServer   = errors.New("server error")
	// ErrBurnFailed means the plaintext was recovered but the server copy may
	// still exist.
	ErrBurnFailed = errors.New("read OK, but burn failed")
)
