// Package bridgeerr defines the error taxonomy from spec §7 as Code
// constants carried by a single *Error type, so callers can use errors.Is
// and CodeOf instead of comparing string codes.
package bridgeerr

import (
	"errors"
	"fmt"
)

// Code identifies one of the error classes the bridge surfaces to clients
// or counts internally.
type Code string

const (
	CodeInvalidMessage     Code = "INVALID_MESSAGE"
	CodeTimeout            Code = "TIMEOUT"
	CodeDeviceUnavailable  Code = "DEVICE_UNAVAILABLE"
	CodeDeviceNotFound     Code = "DEVICE_NOT_FOUND"
	CodeConnectionFailed   Code = "CONNECTION_FAILED"
	CodeAlreadyConnected   Code = "ALREADY_CONNECTED"
	CodeNotConnected       Code = "NOT_CONNECTED"
	CodeRecordingActive    Code = "RECORDING_ACTIVE"
	CodeNoRecording        Code = "NO_RECORDING"
	CodeStreamingOverload  Code = "STREAMING_OVERLOAD"
	CodeSessionClosed      Code = "SESSION_CLOSED"
	CodeExpired            Code = "EXPIRED"
	CodeActionNotFound     Code = "ACTION_NOT_FOUND"
	CodeTargetNotFound     Code = "TARGET_NOT_FOUND"
)

// Error is the concrete error type returned across bridge packages. It
// carries the taxonomy code and whether a caller should retry, mirroring
// the retryable flag in the teacher project's device-error type.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, bridgeerr.New(CodeTimeout, "")) to match any
// *Error with the same Code, regardless of message/wrapped error.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with the given code wrapping an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err, Retryable: IsRetryableCode(code)}
}

// IsRetryableCode reports whether the taxonomy code generally indicates a
// transient condition worth retrying.
func IsRetryableCode(code Code) bool {
	switch code {
	case CodeTimeout, CodeDeviceUnavailable, CodeConnectionFailed:
		return true
	default:
		return false
	}
}

// CodeOf extracts the Code from err if it is (or wraps) a *Error.
func CodeOf(err error) (Code, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}
