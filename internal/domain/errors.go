package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every component. Callers match them with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrConflict            = errors.New("conflict")
	ErrStorage             = errors.New("storage failure")
	ErrNoChanges           = errors.New("no changes made")
	ErrTooLarge            = errors.New("payload too large")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	ErrCatalogDelete       = errors.New("catalog delete failed")
	ErrPartialFailure      = errors.New("partial failure")
)

// ValidationError reports bad or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StepError names the step of a multi-step operation that failed.
// Kind is ErrCatalogDelete when nothing was changed, otherwise ErrPartialFailure.
type StepError struct {
	Step    string
	Kind    error
	Message string
	Err     error
}

func (e *StepError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (step %s): %v", msg, e.Step, e.Err)
	}
	return fmt.Sprintf("%s (step %s)", msg, e.Step)
}

// Is matches the error kind.
func (e *StepError) Is(target error) bool {
	return target == e.Kind
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StorageError wraps blob I/O failures so they match ErrStorage.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// KindError is a user facing message tagged with an error kind.
type KindError struct {
	Kind    error
	Message string
}

func (e *KindError) Error() string { return e.Message }

// Is matches the error kind.
func (e *KindError) Is(target error) bool { return target == e.Kind }

// NewError returns msg tagged with kind.
func NewError(kind error, msg string) error {
	return &KindError{Kind: kind, Message: msg}
}
