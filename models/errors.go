package models

import "errors"

var (
	// ErrNotFound covers both a missing task and one owned by someone else.
	ErrNotFound = errors.New("task not found")

	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports a rejected field.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthError carries a message safe to show to the user: bad credentials,
// a duplicate email, or a missing or expired token.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
