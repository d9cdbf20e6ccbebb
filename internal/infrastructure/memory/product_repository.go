package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/shopkit/storefront/internal/domain/catalog"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
	}
}

// FindAllByID returns the known products among ids, in the order the ids were
// given. Unknown ids are skipped.
func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found = append(found, cloneProduct(p))
		}
	}
	return found, nil
}

// UpdateQuantity applies all adjustments or none: every product is checked
// for existence before the first write.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, adj := range adjustments {
		if _, ok := r.products[adj.ProductID]; !ok {
			return domain.ErrNotFound
		}
		if adj.NewQuantity < 0 {
			return domain.ErrInvalidQuantity
		}
	}

	now := time.Now().UTC()
	for _, adj := range adjustments {
		p := r.products[adj.ProductID]
		p.Quantity = adj.NewQuantity
		p.UpdatedAt = now
	}
	return nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = cloneProduct(p)
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
