// Package errors provides domain-specific error types for sealcheck.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios, matched with errors.Is
// through wrapped HarnessError chains.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnreachable = errors.New("unreachable")
	ErrTimeout     = errors.New("timeout")
)

// Scope describes how far a failure propagates through a verification run.
type Scope int

const (
	// ScopeCase aborts a single test case; the rest of the matrix continues.
	ScopeCase Scope = iota
	// ScopeGroup aborts every test case of one privacy group.
	ScopeGroup
	// ScopeRun aborts the whole run; downstream results would be meaningless.
	ScopeRun
)

// String returns the scope name for logs and reports.
func (s Scope) String() string {
	switch s {
	case ScopeGroup:
		return "group"
	case ScopeRun:
		return "run"
	default:
		return "case"
	}
}

// HarnessError is a structured harness error with a machine-readable code
// and a propagation scope.
type HarnessError struct {
	// Code is a machine-readable error code (e.g., "RESOLUTION_FAILED").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Scope is how far this failure propagates.
	Scope Scope `json:"scope"`

	// Params carries structured context for the report.
	Params map[string]interface{} `json:"params,omitempty"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HarnessError) Unwrap() error {
	return e.Err
}

// New creates a new HarnessError.
func New(code, message string, scope Scope) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: message,
		Scope:   scope,
	}
}

// Wrap wraps an existing error into a HarnessError.
func Wrap(err error, code, message string, scope Scope) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: message,
		Scope:   scope,
		Err:     err,
	}
}

// WithParams attaches structured parameters to the error.
func (e *HarnessError) WithParams(params map[string]interface{}) *HarnessError {
	if e == nil || len(params) == 0 {
		return e
	}
	e.Params = params
	return e
}

// CodeOf extracts the harness error code, or "" for foreign errors.
func CodeOf(err error) string {
	var he *HarnessError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// ScopeOf extracts the propagation scope; foreign errors default to ScopeCase.
func ScopeOf(err error) Scope {
	var he *HarnessError
	if errors.As(err, &he) {
		return he.Scope
	}
	return ScopeCase
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need only one errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
