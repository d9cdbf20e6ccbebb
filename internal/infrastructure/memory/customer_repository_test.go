package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/shopkit/storefront/internal/domain/customer"
)

func TestCustomerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()

	entity, err := domain.New("cust-1", "Ada", "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, entity))

	found, err := repo.FindByID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", found.Name)

	// Copies only.
	found.Name = "changed"
	again, err := repo.FindByID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Name)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
