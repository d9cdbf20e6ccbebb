package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrNoLineItems     = errors.New("order: at least one line item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("order: unit price must be zero or greater")
)

// LineItem is an immutable snapshot of one ordered product. UnitPrice is the
// catalog price captured when the order was placed, never re-read afterwards.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice int64 // cents, at order time
}

type Order struct {
	ID         string
	CustomerID string
	LineItems  []LineItem
	CreatedAt  time.Time
}

func New(id, customerID string, lineItems []LineItem) (*Order, error) {
	if len(lineItems) == 0 {
		return nil, ErrNoLineItems
	}
	for _, li := range lineItems {
		if li.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if li.UnitPrice < 0 {
			return nil, ErrInvalidPrice
		}
	}

	return &Order{
		ID:         id,
		CustomerID: customerID,
		LineItems:  append([]LineItem(nil), lineItems...),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Total is the sum of quantity times unit price over all line items, in cents.
func (o *Order) Total() int64 {
	var total int64
	for _, li := range o.LineItems {
		total += int64(li.Quantity) * li.UnitPrice
	}
	return total
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.LineItems = append([]LineItem(nil), o.LineItems...)
	return &clone
}
