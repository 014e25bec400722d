// Package domain defines the back-office types and the error taxonomy shared
// by every layer.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown product, coupon or assignment ids.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientQuantity is returned when a decrease exceeds the current counter.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrDuplicateIdentifier is returned when a product number is already taken.
	ErrDuplicateIdentifier = errors.New("duplicate product number")
	// ErrOwnershipMismatch is returned when the actor may not touch the product.
	// It is also used for products that do not exist so existence is not disclosed.
	ErrOwnershipMismatch = errors.New("product is not registered to this member")
	// ErrInvalidArgument is the sentinel matched by *InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoChange is returned by updates that would not modify anything.
	ErrNoChange = errors.New("no changes to apply")
	// ErrConflict is returned when a concurrent write won the race on the same row.
	ErrConflict = errors.New("concurrent modification")
	// ErrForbidden is returned for operator-only operations called by anyone else.
	ErrForbidden = errors.New("operation not permitted")
)

// InvalidArgumentError is returned when an input is rejected before any state is touched.
type InvalidArgumentError struct {
	Field  string
	Reason string
	Value  any
}

// Error implements the error interface for InvalidArgumentError
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: field=%s, reason=%s, value=%v", e.Field, e.Reason, e.Value)
}

// Is lets errors.Is(err, ErrInvalidArgument) match.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NewInvalidArgumentError creates a new InvalidArgumentError
func NewInvalidArgumentError(field, reason string, value any) error {
	return &InvalidArgumentError{Field: field, Reason: reason, Value: value}
}

// InsufficientQuantityError carries the counter state that made a decrease fail.
type InsufficientQuantityError struct {
	ProductID int64
	Counter   Counter
	Current   int64
	Requested int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient %s for product %d: have %d, requested %d",
		e.Counter, e.ProductID, e.Current, e.Requested)
}

// Is lets errors.Is(err, ErrInsufficientQuantity) match.
func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// IsInvalidArgument checks if an error is an InvalidArgumentError
func IsInvalidArgument(err error) bool {
	var iae *InvalidArgumentError
	return errors.As(err, &iae)
}
