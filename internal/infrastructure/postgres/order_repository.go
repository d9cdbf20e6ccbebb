package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/shopkit/storefront/internal/domain/order"
)

// OrderRepository persists orders and their line items in PostgreSQL.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil || order.ID == "" {
		return nil, fmt.Errorf("order repository: id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO orders (id, customer_id, created_at) VALUES ($1, $2, $3)",
		order.ID, order.CustomerID, order.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i, li := range order.LineItems {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, position, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)",
			order.ID, i, li.ProductID, li.Quantity, li.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("insert line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRowContext(ctx,
		"SELECT id, customer_id, created_at FROM orders WHERE id = $1", id,
	).Scan(&o.ID, &o.CustomerID, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY position",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ProductID, &li.Quantity, &li.UnitPrice); err != nil {
			return nil, err
		}
		o.LineItems = append(o.LineItems, li)
	}
	return &o, rows.Err()
}
