package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrInvalidPrice    = errors.New("catalog: unit price must be zero or greater")
	ErrInvalidQuantity = errors.New("catalog: quantity must be zero or greater")
)

// Product is a catalog entry: the current unit price and quantity on hand.
type Product struct {
	ID        string
	Name      string
	UnitPrice int64 // cents
	Quantity  int
	UpdatedAt time.Time
}

func NewProduct(id, name string, unitPrice int64, quantity int) (*Product, error) {
	if unitPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Product{
		ID:        id,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// QuantityAdjustment sets a product's on-hand quantity to an absolute value.
type QuantityAdjustment struct {
	ProductID   string
	NewQuantity int
}
