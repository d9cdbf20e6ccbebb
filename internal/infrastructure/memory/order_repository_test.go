package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopkit/storefront/internal/domain/order"
)

func TestOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	entity, err := domain.New("order-1", "cust-1", []domain.LineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 2000},
	})
	require.NoError(t, err)

	created, err := repo.Create(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, created.ID)

	// Mutating the returned copy must not affect the stored order.
	created.LineItems[0].Quantity = 99
	found, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 2, found.LineItems[0].Quantity)
}

func TestOrderRepository_CreateConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	entity, err := domain.New("order-1", "cust-1", []domain.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, entity)
	require.NoError(t, err)

	_, err = repo.Create(ctx, entity)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestOrderRepository_FindMissing(t *testing.T) {
	repo := NewOrderRepository()

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepository_CreateWithoutID(t *testing.T) {
	repo := NewOrderRepository()

	entity, err := domain.New("", "cust-1", []domain.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), entity)
	assert.Error(t, err)
}
