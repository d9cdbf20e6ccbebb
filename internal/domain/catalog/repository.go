package catalog

import "context"

type Repository interface {
	// FindAllByID returns the products that exist among the given ids.
	// Unknown ids are simply absent from the result, never an error.
	FindAllByID(ctx context.Context, ids []string) ([]*Product, error)

	// UpdateQuantity applies all adjustments as one batch.
	UpdateQuantity(ctx context.Context, adjustments []QuantityAdjustment) error
}
