package order

import (
	"errors"
	"fmt"
)

// Placement rejections. These reject the request itself, they are not
// infrastructure failures; callers branch on them with errors.Is / errors.As.
var (
	ErrCustomerNotFound  = errors.New("order: customer not found")
	ErrNoProductsFound   = errors.New("order: none of the requested products exist")
	ErrProductNotFound   = errors.New("order: product not found")
	ErrInsufficientStock = errors.New("order: insufficient stock")
)

// ProductNotFoundError reports the first requested product id, in request
// order, that has no catalog entry.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("order: product %q not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError reports the first requested item, in request order,
// whose quantity exceeds the available stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("order: quantity %d is not available for product %q", e.Requested, e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
