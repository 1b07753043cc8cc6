package engine

import (
	"context"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

// NewOrderItem describes an order item to create. The price is always
// taken from the product at creation time.
type NewOrderItem struct {
	ID       string       `json:"id,omitempty"`
	ItemID   string       `json:"item_id"`
	Quantity int64        `json:"quantity"`
	Status   model.Status `json:"status,omitempty"`
}

// ItemPatch holds the mutable fields of an order item. Nil fields are left
// unchanged.
type ItemPatch struct {
	Quantity *int64       `json:"quantity,omitempty"`
	Status   *model.Status `json:"status,omitempty"`
}

// StatusPatch returns a patch that only sets the status.
func StatusPatch(status model.Status) ItemPatch {
	return ItemPatch{Status: &status}
}

// --- Orders ---

// CreateOrder creates a Draft order with the next sequential id, then its
// initial items, and recomputes the order once.
//
// Published in order: Order Add, one OrderItem Add per item, Order Update
// (only when items were given).
func (e *Engine) CreateOrder(ctx context.Context, items []NewOrderItem) (model.Order, []model.OrderItem, error) {
	prepared := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		p, err := e.prepareItem(ctx, item)
		if err != nil {
			return model.Order{}, nil, err
		}
		prepared = append(prepared, p)
	}

	order, err := e.store.CreateOrder(ctx, model.Order{
		ID:     e.ids.Generate(),
		Status: model.StatusDraft,
	})
	if err != nil {
		return model.Order{}, nil, err
	}
	e.publishAdded(order)
	e.logger.Info("order created", "order_id", order.ID, "sequential_id", order.SequentialID, "items", len(prepared))

	created := make([]model.OrderItem, 0, len(prepared))
	for _, item := range prepared {
		item.OrderID = order.ID
		if err := e.writeItem(ctx, item); err != nil {
			// Items written so far stay; bring the order in line with them.
			if rerr := e.recomputeAll(ctx, []string{order.ID}); rerr != nil {
				return order, created, fmt.Errorf("%w (and %v)", err, rerr)
			}
			return order, created, err
		}
		created = append(created, item)
	}

	if len(created) == 0 {
		return order, created, nil
	}
	order, err = e.recompute(ctx, order.ID)
	return order, created, err
}

// DeleteOrder deletes an order and all of its items.
//
// Published in order: one OrderItem Delete per item, then the Order Delete.
func (e *Engine) DeleteOrder(ctx context.Context, id string) error {
	if _, err := e.store.GetOrder(ctx, id); err != nil {
		return err
	}
	items, err := e.store.ListOrderItemsByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order %q: %w", id, err)
	}
	for _, item := range items {
		if err := e.store.DeleteOrderItem(ctx, item.ID); err != nil {
			return fmt.Errorf("delete order %q: %w", id, err)
		}
		e.publishDeleted(model.EntityOrderItem, item.ID)
	}

	if err := e.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityOrder, id)
	e.logger.Info("order deleted", "order_id", id, "items", len(items))
	return nil
}

// --- Order items ---

// prepareItem validates a new item and snapshots the product price.
func (e *Engine) prepareItem(ctx context.Context, in NewOrderItem) (model.OrderItem, error) {
	if err := requireQuantity(in.Quantity); err != nil {
		return model.OrderItem{}, err
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if err := requireStatus("status", status); err != nil {
		return model.OrderItem{}, err
	}
	if in.ItemID == "" {
		return model.OrderItem{}, model.Invalid("item_id", "must not be empty")
	}
	product, err := e.store.GetProduct(ctx, in.ItemID)
	if err != nil {
		return model.OrderItem{}, referenceError(err, "item_id", model.EntityProduct, in.ItemID)
	}
	if !product.Active {
		return model.OrderItem{}, model.Invalid("item_id", "product %q is not active", product.ID)
	}
	if in.ID != "" {
		if err := ensureAbsent(ctx, e.store.GetOrderItem, model.EntityOrderItem, in.ID); err != nil {
			return model.OrderItem{}, err
		}
	}

	return model.OrderItem{
		ID:       e.assignID(in.ID),
		ItemID:   product.ID,
		Quantity: in.Quantity,
		Price:    product.Price,
		Status:   status,
	}, nil
}

// writeItem persists a prepared item and publishes its Add.
func (e *Engine) writeItem(ctx context.Context, item model.OrderItem) error {
	if err := e.store.CreateOrderItem(ctx, item); err != nil {
		return err
	}
	e.publishAdded(item)
	return nil
}

// CreateOrderItem adds an item to an existing order and recomputes it.
func (e *Engine) CreateOrderItem(ctx context.Context, orderID string, in NewOrderItem) (model.OrderItem, error) {
	if _, err := e.store.GetOrder(ctx, orderID); err != nil {
		return model.OrderItem{}, referenceError(err, "order_id", model.EntityOrder, orderID)
	}
	item, err := e.prepareItem(ctx, in)
	if err != nil {
		return model.OrderItem{}, err
	}
	item.OrderID = orderID

	if err := e.writeItem(ctx, item); err != nil {
		return model.OrderItem{}, err
	}
	if _, err := e.recompute(ctx, orderID); err != nil {
		return item, err
	}
	return item, nil
}

// UpdateOrderItem applies patch to one item and recomputes its order.
func (e *Engine) UpdateOrderItem(ctx context.Context, id string, patch ItemPatch) (model.OrderItem, error) {
	return e.updateItem(ctx, id, patch, true)
}

// updateItem is the single write path for item updates. With cascade set
// the parent order is recomputed after the write.
func (e *Engine) updateItem(ctx context.Context, id string, patch ItemPatch, cascade bool) (model.OrderItem, error) {
	item, err := e.store.GetOrderItem(ctx, id)
	if err != nil {
		return model.OrderItem{}, err
	}
	if patch.Quantity != nil {
		if err := requireQuantity(*patch.Quantity); err != nil {
			return model.OrderItem{}, err
		}
		item.Quantity = *patch.Quantity
	}
	if patch.Status != nil {
		if err := requireStatus("status", *patch.Status); err != nil {
			return model.OrderItem{}, err
		}
		item.Status = *patch.Status
	}

	if err := e.store.UpdateOrderItem(ctx, item); err != nil {
		return model.OrderItem{}, err
	}
	e.publishUpdated(item)

	if cascade {
		if _, err := e.recompute(ctx, item.OrderID); err != nil {
			return item, err
		}
	}
	return item, nil
}

// BulkUpdateOrderItemStatus sets status on every listed item, then
// recomputes each affected order exactly once, in the order the orders
// were first seen. Duplicate ids are updated once.
//
// Every id is looked up before anything is written; an unknown id fails
// the whole request.
func (e *Engine) BulkUpdateOrderItemStatus(ctx context.Context, ids []string, status model.Status) ([]model.OrderItem, error) {
	if len(ids) == 0 {
		return nil, model.Invalid("ids", "must not be empty")
	}
	if err := requireStatus("status", status); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := e.store.GetOrderItem(ctx, id); err != nil {
			return nil, err
		}
		unique = append(unique, id)
	}

	var orders []string
	touched := make(map[string]bool)
	updated := make([]model.OrderItem, 0, len(unique))
	for _, id := range unique {
		item, err := e.updateItem(ctx, id, StatusPatch(status), false)
		if err != nil {
			if rerr := e.recomputeAll(ctx, orders); rerr != nil {
				return updated, fmt.Errorf("%w (and %v)", err, rerr)
			}
			return updated, err
		}
		updated = append(updated, item)
		if !touched[item.OrderID] {
			touched[item.OrderID] = true
			orders = append(orders, item.OrderID)
		}
	}

	e.logger.Info("bulk status update",
		"items", len(updated),
		"orders", len(orders),
		"status", status,
	)
	return updated, e.recomputeAll(ctx, orders)
}

// DeleteOrderItem deletes an item and recomputes its order.
func (e *Engine) DeleteOrderItem(ctx context.Context, id string) error {
	item, err := e.store.GetOrderItem(ctx, id)
	if err != nil {
		return err
	}
	if err := e.store.DeleteOrderItem(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityOrderItem, id)

	_, err = e.recompute(ctx, item.OrderID)
	return err
}

// --- Station workflow ---

// AdvanceItem moves an item through a station: the item's product must be
// in one of the station's categories and its status one of the station's
// input statuses. The item takes the station's output status.
func (e *Engine) AdvanceItem(ctx context.Context, stationID, itemID string) (model.OrderItem, error) {
	station, err := e.store.GetStation(ctx, stationID)
	if err != nil {
		return model.OrderItem{}, err
	}
	item, err := e.store.GetOrderItem(ctx, itemID)
	if err != nil {
		return model.OrderItem{}, err
	}
	product, err := e.store.GetProduct(ctx, item.ItemID)
	if err != nil {
		return model.OrderItem{}, fmt.Errorf("advance item %q: %w", itemID, err)
	}

	if !station.Handles(product.CategoryID) {
		return model.OrderItem{}, model.Invalid("item_id",
			"station %q does not handle category %q", station.ID, product.CategoryID)
	}
	if !station.Accepts(item.Status) {
		return model.OrderItem{}, model.Invalid("status",
			"station %q does not take items in status %s", station.ID, item.Status)
	}

	return e.updateItem(ctx, itemID, StatusPatch(station.OutputStatus), true)
}
