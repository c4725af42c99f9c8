// Package errors provides the structured error codes used across arcbot.
//
// Every failure the diagnostics and configuration paths can produce carries
// one of the ErrCode values below, so command handlers can decide what to
// tell the user without string matching:
//
//	if errors.HasCode(err, errors.ErrCodeTransportUnavailable) {
//	    reply("There was a problem getting the shard manager")
//	}
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeTransportUnavailable indicates shard or latency state could not be read.
	ErrCodeTransportUnavailable ErrorCode = "TRANSPORT_UNAVAILABLE"
	// ErrCodeSubprocessFailure indicates a helper process failed to spawn or exited non-zero.
	ErrCodeSubprocessFailure ErrorCode = "SUBPROCESS_FAILURE"
	// ErrCodeOutputParseFailure indicates helper output was not a valid unsigned integer.
	ErrCodeOutputParseFailure ErrorCode = "OUTPUT_PARSE_FAILURE"
	// ErrCodeFileAccessFailure indicates the manifest or another fixed file was unreadable.
	ErrCodeFileAccessFailure ErrorCode = "FILE_ACCESS_FAILURE"
	// ErrCodeScanFailure indicates a file under the source root could not be scanned.
	ErrCodeScanFailure ErrorCode = "SCAN_FAILURE"
	// ErrCodeStoreQueryFailure indicates the backing store call failed.
	ErrCodeStoreQueryFailure ErrorCode = "STORE_QUERY_FAILURE"
	// ErrCodeMalformedPayload indicates a user-supplied structured payload did not parse.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
)

// StructuredError carries an error code, a human-readable message, the
// underlying cause and optional context for logging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}
