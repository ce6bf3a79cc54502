package errors

import (
	"errors"
	"fmt"
)

// Shared error values for the session client
var (
	// Credential storage
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt credentials")

	// Session
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionEnded     = errors.New("session ended")
	ErrNoRefreshToken   = errors.New("no refresh token")

	// Configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
