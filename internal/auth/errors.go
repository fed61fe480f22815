package auth

import (
	"errors"
	"fmt"
)

// Provider error codes.
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeWeakPassword         = "auth/weak-password"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeUserDisabled         = "auth/user-disabled"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeNoCurrentUser        = "auth/no-current-user"
	CodeInternal             = "auth/internal-error"
)

// Error is a failed provider operation. Code is one of the Code* constants
// (or a backend-specific code); Err is the underlying cause, if any.
type Error struct {
	Code string
	Err  error
}

// NewError returns an *Error for code wrapping err.
func NewError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the provider code from err, or "" when err carries none.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
