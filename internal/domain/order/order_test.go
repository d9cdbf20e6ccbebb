package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	lines := []LineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 1500},
		{ProductID: "p2", Quantity: 1, UnitPrice: 300},
	}

	o, err := New("order-1", "cust-1", lines)
	require.NoError(t, err)
	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, lines, o.LineItems)
	assert.False(t, o.CreatedAt.IsZero())

	// The order owns its own copy of the line items.
	lines[0].Quantity = 99
	assert.Equal(t, 2, o.LineItems[0].Quantity)
}

func TestNew_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		lines []LineItem
		want  error
	}{
		{"no items", nil, ErrNoLineItems},
		{"zero quantity", []LineItem{{ProductID: "p1", Quantity: 0, UnitPrice: 100}}, ErrInvalidQuantity},
		{"negative quantity", []LineItem{{ProductID: "p1", Quantity: -1, UnitPrice: 100}}, ErrInvalidQuantity},
		{"negative price", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: -1}}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("order-1", "cust-1", tc.lines)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTotal(t *testing.T) {
	o, err := New("order-1", "cust-1", []LineItem{
		{ProductID: "p1", Quantity: 3, UnitPrice: 250},
		{ProductID: "p2", Quantity: 2, UnitPrice: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3*250+2*1000), o.Total())
}

func TestClone(t *testing.T) {
	o, err := New("order-1", "cust-1", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 10}})
	require.NoError(t, err)

	clone := o.Clone()
	clone.LineItems[0].Quantity = 42
	assert.Equal(t, 1, o.LineItems[0].Quantity)

	var nilOrder *Order
	assert.Nil(t, nilOrder.Clone())
}

func TestRejectionErrors(t *testing.T) {
	pnf := &ProductNotFoundError{ProductID: "p9"}
	assert.ErrorIs(t, pnf, ErrProductNotFound)
	assert.Contains(t, pnf.Error(), "p9")

	ise := &InsufficientStockError{ProductID: "p2", Requested: 7}
	assert.ErrorIs(t, ise, ErrInsufficientStock)
	assert.Contains(t, ise.Error(), "p2")
	assert.Contains(t, ise.Error(), "7")

	var target *ProductNotFoundError
	require.True(t, errors.As(error(pnf), &target))
	assert.Equal(t, "p9", target.ProductID)
}
