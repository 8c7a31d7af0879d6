package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrReference matches any *ReferenceError via errors.Is.
	ErrReference = errors.New("graph: dangling reference")

	// ErrExecution matches any *ExecutionError via errors.Is.
	ErrExecution = errors.New("graph: execution failed")
)

// ReferenceError reports a ref that does not name a live element.
type ReferenceError struct {
	// Op is the store operation that hit the ref, e.g. "AddEdge".
	Op string

	// Ref is the missing element.
	Ref Element
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("graph: %s: %s does not exist", e.Op, e.Ref)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrReference }

// ExecutionError wraps a failure of the backing store or transport. It is
// surfaced as-is; the store never retries.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("graph: %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// execErr wraps err as an *ExecutionError unless it is nil or already a
// graph error.
func execErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrReference) || errors.Is(err, ErrExecution) {
		return err
	}
	return &ExecutionError{Op: op, Err: err}
}

// NewExecutionError wraps err for op. Backends outside this package use it
// to report transport failures.
func NewExecutionError(op string, err error) error {
	return execErr(op, err)
}
