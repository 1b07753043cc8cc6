package engine

import (
	"context"

	"github.com/roach88/kitchensync/internal/model"
)

// Aggregate derives an order's status and total from its items.
//
// The status is the highest-priority item status. Cancelled outranks every
// other status, so one cancelled item makes the whole order read Cancelled.
// The total sums quantity times snapshot price over items that are not
// Cancelled. An empty item set yields Draft and 0.
func Aggregate(items []model.OrderItem) (model.Status, int64) {
	status, ok := model.MaxStatus(items)
	if !ok {
		status = model.StatusDraft
	}
	var total int64
	for _, item := range items {
		if item.Status == model.StatusCancelled {
			continue
		}
		total += item.LineTotal()
	}
	return status, total
}

// recompute reads the order's items, writes the derived status and total
// onto the order, and publishes the Order Update.
//
// The read and the write are not wrapped in a transaction.
func (e *Engine) recompute(ctx context.Context, orderID string) (model.Order, error) {
	e.recomputations.Add(1)

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, &RecomputeError{OrderID: orderID, Err: err}
	}
	items, err := e.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, &RecomputeError{OrderID: orderID, Err: err}
	}

	previous := order.Status
	order.Status, order.TotalPrice = Aggregate(items)
	if err := e.store.UpdateOrder(ctx, order); err != nil {
		return model.Order{}, &RecomputeError{OrderID: orderID, Err: err}
	}

	e.logger.Debug("order recomputed",
		"order_id", order.ID,
		"items", len(items),
		"previous_status", previous,
		"status", order.Status,
		"total_price", order.TotalPrice,
	)
	e.publishUpdated(order)
	return order, nil
}

// recomputeAll recomputes each order once, in the given order. It keeps
// going after a failure and returns the first error.
func (e *Engine) recomputeAll(ctx context.Context, orderIDs []string) error {
	var first error
	for _, id := range orderIDs {
		if _, err := e.recompute(ctx, id); err != nil {
			e.logger.Error("order recomputation failed", "order_id", id, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
