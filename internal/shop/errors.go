package shop

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("order items is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrSupplierNotFound  = errors.New("supplier not found")
)

// CheckoutError wraps any non-domain failure raised inside the checkout
// transaction. The cause stays available via errors.Unwrap; clients only see
// the generic message.
type CheckoutError struct {
	cause error
}

func (e *CheckoutError) Error() string { return fmt.Sprintf("checkout failed: %v", e.cause) }
func (e *CheckoutError) Unwrap() error { return e.cause }
