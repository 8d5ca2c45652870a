// Package errors defines the structured error taxonomy of the chatview
// runtime. Every error carries a code that places it in one of four classes:
// validation (programmer error, fatal at startup), state (invalid operation
// for the current lifecycle state), transport (the chat platform rejected a
// call), and store (persistence failure). Concurrency anomalies have their
// own code and indicate a broken invariant.
package errors

import (
	"fmt"
	"strings"
)

// Code is a structured error code.
type Code string

const (
	// Validation errors: duplicate or unknown registrations. These are
	// programmer errors surfaced at startup or treated as bugs, never
	// silently swallowed.
	CodeDuplicateKind   Code = "DUPLICATE_KIND"
	CodeDuplicateAction Code = "DUPLICATE_ACTION"
	CodeUnknownAction   Code = "UNKNOWN_ACTION"
	CodeBadCallback     Code = "BAD_CALLBACK"

	// State errors: the operation is invalid given the view's lifecycle
	// state. Recovered locally where a defined fallback exists, otherwise
	// surfaced to the event's caller.
	CodeViewBound     Code = "VIEW_BOUND"
	CodeViewUnbound   Code = "VIEW_UNBOUND"
	CodeViewDisabled  Code = "VIEW_DISABLED"
	CodeViewUntracked Code = "VIEW_UNTRACKED"
	CodeMediaUpgrade  Code = "MEDIA_UPGRADE"
	CodeUnknownKind   Code = "UNKNOWN_KIND"
	CodeNoParent      Code = "NO_PARENT"

	// Transport errors: the chat platform failed or rejected a call.
	// Never retried automatically by the runtime.
	CodeTransportSend   Code = "TRANSPORT_SEND"
	CodeTransportEdit   Code = "TRANSPORT_EDIT"
	CodeTransportDelete Code = "TRANSPORT_DELETE"
	CodeTransportAnswer Code = "TRANSPORT_ANSWER"

	// Store errors.
	CodeStoreRead     Code = "STORE_READ"
	CodeStoreWrite    Code = "STORE_WRITE"
	CodeStoreNotFound Code = "STORE_NOT_FOUND"
	CodeStoreCorrupt  Code = "STORE_CORRUPT"

	// Concurrency errors: should not occur under correct lock discipline.
	CodeLockAnomaly Code = "LOCK_ANOMALY"

	CodeInternal Code = "INTERNAL"
)

// Error is a structured runtime error.
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Context    map[string]any
}

// New creates a new structured error.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new structured error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message. Returns nil when
// err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

// WithContext adds a context key-value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", k, v)
			first = false
		}
		sb.WriteString("}")
	}
	if e.Underlying != nil {
		fmt.Fprintf(&sb, ": %v", e.Underlying)
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the code from an error. Non-structured errors map to
// CodeInternal, nil to the empty code.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	e, ok := err.(*Error)
	if !ok {
		return CodeInternal
	}
	return e.Code
}

// IsValidation reports whether err is a registration/programmer error.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeDuplicateKind, CodeDuplicateAction, CodeUnknownAction, CodeBadCallback:
		return true
	}
	return false
}

// IsState reports whether err is a lifecycle-state error.
func IsState(err error) bool {
	switch GetCode(err) {
	case CodeViewBound, CodeViewUnbound, CodeViewDisabled, CodeViewUntracked,
		CodeMediaUpgrade, CodeUnknownKind, CodeNoParent:
		return true
	}
	return false
}

// IsTransport reports whether err originated at the chat transport.
func IsTransport(err error) bool {
	switch GetCode(err) {
	case CodeTransportSend, CodeTransportEdit, CodeTransportDelete, CodeTransportAnswer:
		return true
	}
	return false
}

// IsStore reports whether err originated at the persistence layer.
func IsStore(err error) bool {
	switch GetCode(err) {
	case CodeStoreRead, CodeStoreWrite, CodeStoreNotFound, CodeStoreCorrupt:
		return true
	}
	return false
}
