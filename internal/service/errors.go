package service

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers translate these into
// HTTP statuses; anything else propagates as an internal error.
var (
	// ErrNotFound wraps lookups that matched no row.
	ErrNotFound = errors.New("not found")

	// ErrOrderInactive rejects edits to canceled/returned orders. Status
	// changes go through the dedicated status operation instead.
	ErrOrderInactive = errors.New("order is canceled or returned; only its status can be changed")

	// ErrProtectedReference rejects deleting a record that existing orders
	// still reference.
	ErrProtectedReference = errors.New("record is referenced by existing orders")
)

// ValidationError is a recoverable, field-scoped rejection. The caller fixes
// the named field and retries; nothing was committed.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// InsufficientStockError reports a stock check failure, naming the product
// and how many units are actually available right now.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// AsValidation renders the stock failure as the field-scoped error the
// presentation layer shows next to the quantity input.
func (e *InsufficientStockError) AsValidation() *ValidationError {
	return &ValidationError{
		Field:   "quantity",
		Message: fmt.Sprintf("Not enough stock for %q. Available: %d", e.ProductName, e.Available),
	}
}

// IsValidation reports whether err should be shown to the caller as a
// field/message pair rather than an internal failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ise *InsufficientStockError
	return errors.As(err, &ve) || errors.As(err, &ise)
}

// FieldMessage extracts the field/message pair from a validation error.
func FieldMessage(err error) (field, message string, ok bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field, ve.Message, true
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		v := ise.AsValidation()
		return v.Field, v.Message, true
	}
	return "", "", false
}
