package calculator

import (
	"errors"
	"fmt"
)

var (
	ErrNoParticipants       = errors.New("must have at least one participant")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrNegativeShare        = errors.New("share cannot be negative")
	ErrInvalidPercentages   = errors.New("percentages must sum to 100")
	ErrCustomAmountMismatch = errors.New("custom amounts must sum to total expense")
	ErrInvalidAdjustment    = errors.New("adjustment needs two distinct participants")
)

// ValidationError reports inputs that are inconsistent with the requested split.
// It wraps one of the sentinel errors above.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}
