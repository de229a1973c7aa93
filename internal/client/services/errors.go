package services

import "errors"

// Recoverable operation errors. Their messages are what the stores expose
// through State().Error.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrContactNotFound    = errors.New("contact not found")
	ErrNoActiveSession    = errors.New("no active session")
)
