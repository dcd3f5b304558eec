package core

import "errors"

// Validation failures are detected before any mutation is attempted.
var (
	ErrEmptyName       = errors.New("empty category name")
	ErrNameTooLong     = errors.New("category name too long")
	ErrDuplicateName   = errors.New("duplicate category name")
	ErrInvalidMonth    = errors.New("month out of range")
	ErrIncompleteOrder = errors.New("reorder must include every category id exactly once")
	ErrUnknownOrderID  = errors.New("unknown category id in reorder")
)

// ErrCategoryNotFound marks a reference to an id the registry does not hold.
var ErrCategoryNotFound = errors.New("category not found")

// IsValidation reports whether err is a precondition failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrIncompleteOrder) ||
		errors.Is(err, ErrUnknownOrderID)
}

// IsNotFound reports whether err is a missing-category failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound)
}
