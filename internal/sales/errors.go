package sales

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidPayment    = errors.New("invalid payment")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInternal          = errors.New("internal error")
)

// Error carries a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PublicMessage returns the caller-safe message of err, or fallback when err
// is not a sales error.
func PublicMessage(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return fallback
}
