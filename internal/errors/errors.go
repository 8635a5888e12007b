package errors

import (
	"errors"
	"fmt"
)

// Error kinds returned by destination resolution and token retrieval.
var (
	// Resolution errors
	ErrDestinationNotFound = errors.New("destination not found")
	ErrDestinationAccess   = errors.New("destination access failed")

	// Token errors
	ErrOAuthToken         = errors.New("oauth2 token request failed")
	ErrTokenRequestFailed = fmt.Errorf("%w: token flow failed", ErrOAuthToken)

	// Service binding errors
	ErrServiceBindingAccess = errors.New("service binding access failed")

	// Resilience errors
	ErrResilience = errors.New("resilience boundary rejected the call")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// DestinationError carries one of the error kinds above together with the
// underlying cause, so both can be matched with errors.Is.
type DestinationError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *DestinationError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *DestinationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind, cause error, format string, args ...interface{}) error {
	return &DestinationError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotFound reports that no strategy applies to the given input.
func NotFound(cause error, format string, args ...interface{}) error {
	return newError(ErrDestinationNotFound, cause, format, args...)
}

// Access reports a binding that was recognised but is malformed or incomplete.
func Access(cause error, format string, args ...interface{}) error {
	return newError(ErrDestinationAccess, cause, format, args...)
}

// OAuthToken reports that the token endpoint produced no usable token.
func OAuthToken(cause error, format string, args ...interface{}) error {
	return newError(ErrOAuthToken, cause, format, args...)
}

// TokenRequestFailed reports a failure while executing a token flow.
func TokenRequestFailed(cause error, format string, args ...interface{}) error {
	return newError(ErrTokenRequestFailed, cause, format, args...)
}

// ServiceBindingAccess reports a failure reading service bindings.
func ServiceBindingAccess(cause error, format string, args ...interface{}) error {
	return newError(ErrServiceBindingAccess, cause, format, args...)
}

// Unsupported reports a recognised but unimplemented mode.
func Unsupported(format string, args ...interface{}) error {
	return newError(ErrUnsupported, nil, format, args...)
}

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
