package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront client
var (
	// Session errors
	ErrNoAccessToken = errors.New("no access token")
	ErrCorruptState  = errors.New("corrupt persisted state")

	// Input errors, raised before a request is dispatched
	ErrInvalidInput = errors.New("invalid input")

	// Response errors
	ErrMalformedResponse = errors.New("malformed response")

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

// Invalidf returns an ErrInvalidInput carrying a field specific message
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
