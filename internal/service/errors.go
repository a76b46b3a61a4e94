package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Failure kinds returned by the services. Callers match them with errors.Is;
// the wrapped message carries detail for logs and API responses.
var (
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidState      = errors.New("invalid state")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPersistence       = errors.New("persistence error")
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// lookupErr turns a repository lookup failure into ErrNotFound or ErrPersistence.
func lookupErr(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: load %s", ErrPersistence, what)
}

// isDomainErr reports whether err is one of the typed failures above, as
// opposed to a raw store error that must be reported generically.
func isDomainErr(err error) bool {
	for _, target := range []error{ErrInvalidAction, ErrInvalidState, ErrForbidden, ErrNotFound, ErrValidation, ErrInsufficientStock, ErrPersistence} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
