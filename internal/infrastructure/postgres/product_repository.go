package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	domain "github.com/shopkit/storefront/internal/domain/catalog"
)

// ProductRepository reads catalog entries and applies batched quantity
// updates against PostgreSQL.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, unit_price, quantity, updated_at FROM products WHERE id = ANY($1)",
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Quantity, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// UpdateQuantity runs the whole batch in one transaction so a partial failure
// leaves no adjustment applied.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, adj := range adjustments {
		if adj.NewQuantity < 0 {
			return domain.ErrInvalidQuantity
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1",
			adj.ProductID, adj.NewQuantity,
		)
		if err != nil {
			return fmt.Errorf("update quantity for %s: %w", adj.ProductID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
	}

	return tx.Commit()
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, unit_price, quantity, updated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			unit_price = EXCLUDED.unit_price,
			quantity = EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Name, p.UnitPrice, p.Quantity, p.UpdatedAt,
	)
	return err
}
