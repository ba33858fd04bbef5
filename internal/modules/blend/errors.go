package blend

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports series or grid parameters the optimizer cannot
// work with. It is returned before any computation starts.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) succeed.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(format string, args ...interface{}) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}
