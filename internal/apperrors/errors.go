package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates a write lost a race against a concurrent writer.
var ErrConflict = errors.New("conflicting update")

// ErrInvalidTransition indicates a rule lifecycle change that the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrRuleNotActive is returned when materialization is attempted for a rule that is no longer ACTIVE.
var ErrRuleNotActive = errors.New("recurrence rule is not active")

// ErrStaleOccurrence is returned when the occurrence being materialized is not the rule's current next due date.
var ErrStaleOccurrence = errors.New("occurrence is not the rule's next due date")

// ErrAccountUnavailable indicates the rule's account is missing or inactive.
var ErrAccountUnavailable = errors.New("account unavailable")

// AppError carries an HTTP-ish status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError. err may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err means the rule cannot make progress until a user fixes it.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAccountUnavailable) || errors.Is(err, ErrValidation)
}

// IsBenign reports whether err only means another writer got there first.
// The scheduler treats these as "nothing to do" rather than failures.
func IsBenign(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrRuleNotActive) ||
		errors.Is(err, ErrStaleOccurrence)
}
