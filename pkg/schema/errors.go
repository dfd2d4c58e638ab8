package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidReference  = "INVALID_REFERENCE"
	ErrCodeDuplicateID       = "DUPLICATE_ID"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidAttribute  = "INVALID_ATTRIBUTE"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeDecode            = "DECODE_ERROR"
	ErrCodeStore             = "STORE_ERROR"
	ErrCodeEvaluation        = "EVALUATION_ERROR"
)

// GraphError is the structured error type for all wfgraph operations.
type GraphError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *GraphError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

// NewError creates a new GraphError.
func NewError(code, message string) *GraphError {
	return &GraphError{Code: code, Message: message}
}

// NewErrorf creates a new GraphError with a formatted message.
func NewErrorf(code, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *GraphError) WithNode(nodeID string) *GraphError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *GraphError) WithCause(err error) *GraphError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *GraphError) WithDetails(details map[string]any) *GraphError {
	e.Details = details
	return e
}

// IsCode reports whether err (or anything it wraps) is a GraphError with the given code.
func IsCode(err error, code string) bool {
	for err != nil {
		var gErr *GraphError
		if !errors.As(err, &gErr) {
			return false
		}
		if gErr.Code == code {
			return true
		}
		err = gErr.Cause
	}
	return false
}
