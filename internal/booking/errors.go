package booking

import "errors"

// ErrNotFound marks a referenced booking or tent that does not exist in the store.
var ErrNotFound = errors.New("not found")

// ValidationError marks a request rejected before any write happened.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
