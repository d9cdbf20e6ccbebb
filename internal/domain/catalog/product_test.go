package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	p, err := NewProduct("p1", "Widget", 1200, 5)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, int64(1200), p.UnitPrice)
	assert.Equal(t, 5, p.Quantity)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestNewProduct_Rejections(t *testing.T) {
	_, err := NewProduct("p1", "Widget", -1, 5)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewProduct("p1", "Widget", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// Zero price and zero stock are both valid catalog states.
	_, err = NewProduct("p1", "Widget", 0, 0)
	assert.NoError(t, err)
}
