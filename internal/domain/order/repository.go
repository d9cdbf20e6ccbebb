package order

import "context"

type Repository interface {
	// Create persists a new order and returns the stored representation.
	// The returned order, not the argument, is what callers should treat as
	// the source of truth for downstream effects.
	Create(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, id string) (*Order, error)
}
