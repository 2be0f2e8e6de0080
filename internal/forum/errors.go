package forum

import (
	"errors"
	"fmt"

	"launchpad/internal/store"
)

var (
	// ErrNotFound is returned for refs that match neither a stored post nor a fixture.
	ErrNotFound = store.ErrNotFound

	ErrFixtureReadOnly   = errors.New("featured posts cannot be changed")
	ErrNotOwner          = errors.New("post belongs to another identity, secret key required")
	ErrSecretKeyMismatch = errors.New("secret key does not match")
	ErrEmptyComment      = errors.New("comment is empty")
	ErrCommentTooLong    = fmt.Errorf("comment exceeds %d characters", maxCommentRunes)
)

// ValidationError reports an invalid form field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsAuthError reports whether err asks the caller for a (different) secret key.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotOwner) || errors.Is(err, ErrSecretKeyMismatch)
}
