// Package errors provides typed error values for model operations.
//
// The package follows Go 1.13+ error conventions: every constructor returns
// an error that supports errors.Is/errors.As, and wrapping is done with
// cockroachdb/errors so stack traces are available via %+v.
package errors

import (
	"fmt"

	cerrors "github.com/cockroachdb/errors"
)

// Sentinel errors for common failure conditions.
var (
	// ErrEmptyData indicates an operation received no data.
	ErrEmptyData = cerrors.New("empty data")

	// ErrInvalidTargetRange indicates a regression target range is missing
	// or already contains the current score.
	ErrInvalidTargetRange = cerrors.New("invalid target range")

	// ErrNotImplemented indicates a requested capability is not available.
	ErrNotImplemented = cerrors.New("not implemented")
)

// ModelError represents an error that occurred during a model operation.
type ModelError struct {
	Op      string // operation, e.g. "Model.Predict"
	Message string // human-readable context
	Err     error  // underlying cause
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gamcf: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("gamcf: %s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping cause with stack capture.
func NewModelError(op, message string, cause error) error {
	return cerrors.WithStackDepth(&ModelError{Op: op, Message: message, Err: cause}, 1)
}

// ValueError represents an invalid argument or value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gamcf: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with stack capture.
func NewValueError(op, message string) error {
	return cerrors.WithStackDepth(&ValueError{Op: op, Message: message}, 1)
}

// DimensionError represents a shape mismatch between expected and actual data.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Dim      int // which axis mismatched (0=rows, 1=columns)
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("gamcf: %s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Dim, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError with stack capture.
func NewDimensionError(op string, expected, got, dim int) error {
	return cerrors.WithStackDepth(&DimensionError{Op: op, Expected: expected, Got: got, Dim: dim}, 1)
}

// NotFittedError indicates a model was used before it was loaded or trained.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gamcf: %s.%s: model is not fitted", e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError with stack capture.
func NewNotFittedError(modelName, method string) error {
	return cerrors.WithStackDepth(&NotFittedError{ModelName: modelName, Method: method}, 1)
}

// Recover converts a panic inside a public operation into an error.
// Use as: defer errors.Recover(&err, "Model.Predict").
func Recover(errp *error, op string) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errp = NewModelError(op, "panic during operation", err)
			return
		}
		*errp = NewModelError(op, fmt.Sprintf("panic during operation: %v", r), nil)
	}
}
