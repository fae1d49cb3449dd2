package errors

import (
	"errors"
	"fmt"
)

// Common error types for the dashboard session core
var (
	// Session errors
	ErrUnauthenticated   = errors.New("user session not available, please log in again")
	ErrIncompleteSession = errors.New("session triple is incomplete")
	ErrCorruptRecord     = errors.New("persisted session record is corrupt")

	// Acquisition errors
	ErrLoginNetwork   = errors.New("login poll request failed")
	ErrLoginDenied    = errors.New("login failed")
	ErrLoginTimeout   = errors.New("login timed out")
	ErrLoginAbandoned = errors.New("login abandoned")
	ErrFlowStarted    = errors.New("login flow already started")

	// Identity errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidState = errors.New("invalid state parameter")

	// General errors
	ErrNotFound = errors.New("not found")
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

// New returns an error with the supplied message
func New(msg string) error {
	return errors.New(msg)
}
