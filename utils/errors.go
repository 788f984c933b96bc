// Package utils contains error kinds and small numeric helpers shared by the models.
package utils

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned when a model is handed vectors or matrices of the wrong size
	// or parameters outside their domain. No model state is modified when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNumericDivergence is returned when a model produces or is handed a non-finite
	// probability, mean or sample. The caller decides whether to drop the hypothesis or abort.
	ErrNumericDivergence = errors.New("numeric divergence")
)

// NewInvalidArgumentError wraps ErrInvalidArgument with a formatted message.
func NewInvalidArgumentError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// NewDimensionMismatchError is used when a vector or matrix has the wrong size.
func NewDimensionMismatchError(what string, expected, actual int) error {
	return errors.Wrapf(ErrInvalidArgument, "%s has dimension %d, expected %d", what, actual, expected)
}

// NewNumericDivergenceError wraps ErrNumericDivergence with a formatted message.
func NewNumericDivergenceError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNumericDivergence, format, args...)
}

// NewConfigValidationError returns a config validation error for the given path.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns a config validation error for a missing field.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
