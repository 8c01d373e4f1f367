package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors, one per pipeline failure kind.
var (
	ErrExtraction   = errors.New("document extraction failed")
	ErrSplit        = errors.New("passage split produced nothing")
	ErrEmbedding    = errors.New("embedding failed")
	ErrStoreWrite   = errors.New("vector store write failed")
	ErrStoreQuery   = errors.New("vector store query failed")
	ErrCompletion   = errors.New("completion failed")
	ErrIndexBuild   = errors.New("index build failed")
	ErrTimeout      = errors.New("operation timed out")
	ErrInvalidQuery = errors.New("invalid query")
)

// StageError attaches a stage name and a failure kind to an underlying
// cause. errors.Is matches both the kind sentinel and the cause chain.
type StageError struct {
	Stage string
	Kind  error
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Cause)
}

func (e *StageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewStageError creates a StageError.
func NewStageError(stage string, kind, cause error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Cause: cause}
}

// Classify returns ErrTimeout when err stems from a deadline, otherwise
// the given kind.
func Classify(err, kind error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return kind
}

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
