package store

import (
	"context"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

const orderColumns = `id, sequential_id, total_price, status`

// CreateOrder inserts an order and assigns the next sequential id.
// Any SequentialID set by the caller is ignored.
func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, fmt.Errorf("create order: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequential_id), 0) + 1 FROM orders`,
	).Scan(&o.SequentialID); err != nil {
		return model.Order{}, fmt.Errorf("create order: next sequential id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?)`,
		o.ID, o.SequentialID, o.TotalPrice, string(o.Status),
	); err != nil {
		return model.Order{}, fmt.Errorf("create order: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, fmt.Errorf("create order: commit: %w", err)
	}
	return o, nil
}

// GetOrder retrieves an order by id.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return queryOne(ctx, s.db, model.EntityOrder, id, scanOrder,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`)
}

// ListOrders returns every order by sequential id.
func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	out, err := queryList(ctx, s.db, scanOrder, `SELECT `+orderColumns+` FROM orders ORDER BY sequential_id`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// UpdateOrder writes the order's derived fields. The sequential id is
// immutable.
func (s *Store) UpdateOrder(ctx context.Context, o model.Order) error {
	return s.execAffecting(ctx, model.EntityOrder, o.ID, "update",
		`UPDATE orders SET total_price = ?, status = ? WHERE id = ?`,
		o.TotalPrice, string(o.Status), o.ID)
}

// DeleteOrder removes an order. The order must have no items left.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityOrder, id, "delete",
		`DELETE FROM orders WHERE id = ?`, id)
}

func scanOrder(row scanner) (model.Order, error) {
	var o model.Order
	var status string
	err := row.Scan(&o.ID, &o.SequentialID, &o.TotalPrice, &status)
	o.Status = model.Status(status)
	return o, err
}

// --- Order items ---

const orderItemColumns = `id, order_id, item_id, quantity, price, status`

// CreateOrderItem inserts an order item. The referenced order and product
// must exist (foreign keys).
func (s *Store) CreateOrderItem(ctx context.Context, i model.OrderItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO order_items (`+orderItemColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.OrderID, i.ItemID, i.Quantity, i.Price, string(i.Status))
	if err != nil {
		return fmt.Errorf("create order item: %w", err)
	}
	return nil
}

// GetOrderItem retrieves an order item by id.
func (s *Store) GetOrderItem(ctx context.Context, id string) (model.OrderItem, error) {
	return queryOne(ctx, s.db, model.EntityOrderItem, id, scanOrderItem,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = ?`)
}

// ListOrderItems returns every order item in insertion order.
func (s *Store) ListOrderItems(ctx context.Context) ([]model.OrderItem, error) {
	out, err := queryList(ctx, s.db, scanOrderItem, `SELECT `+orderItemColumns+` FROM order_items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return out, nil
}

// ListOrderItemsByOrder returns the items of one order in insertion order.
func (s *Store) ListOrderItemsByOrder(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	out, err := queryList(ctx, s.db, scanOrderItem,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY rowid`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list items of order %q: %w", orderID, err)
	}
	return out, nil
}

// UpdateOrderItem writes an item's quantity and status. Order, product, and
// price are fixed at creation.
func (s *Store) UpdateOrderItem(ctx context.Context, i model.OrderItem) error {
	return s.execAffecting(ctx, model.EntityOrderItem, i.ID, "update",
		`UPDATE order_items SET quantity = ?, status = ? WHERE id = ?`,
		i.Quantity, string(i.Status), i.ID)
}

// DeleteOrderItem removes an order item.
func (s *Store) DeleteOrderItem(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityOrderItem, id, "delete",
		`DELETE FROM order_items WHERE id = ?`, id)
}

// CountOrderItemsForProduct returns how many order items reference the product.
func (s *Store) CountOrderItemsForProduct(ctx context.Context, productID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM order_items WHERE item_id = ?`, productID)
	if err != nil {
		return 0, fmt.Errorf("count order items for product %q: %w", productID, err)
	}
	return n, nil
}

func scanOrderItem(row scanner) (model.OrderItem, error) {
	var i model.OrderItem
	var status string
	err := row.Scan(&i.ID, &i.OrderID, &i.ItemID, &i.Quantity, &i.Price, &status)
	i.Status = model.Status(status)
	return i, err
}
