package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/model"
)

// action runs one engine call with JSON-encoded arguments.
type action func(ctx context.Context, eng *engine.Engine, args []byte) (any, error)

// argsError is a step whose arguments do not fit the action. It is a
// scenario bug, not an engine outcome.
type argsError struct {
	action string
	err    error
}

func (e *argsError) Error() string {
	return fmt.Sprintf("action %s: bad args: %v", e.action, e.err)
}

func (e *argsError) Unwrap() error {
	return e.err
}

var actions = map[string]action{
	"create_category": entityAction((*engine.Engine).CreateCategory),
	"update_category": entityAction((*engine.Engine).UpdateCategory),
	"delete_category": deleteAction((*engine.Engine).DeleteCategory),

	"create_product": entityAction((*engine.Engine).CreateProduct),
	"update_product": entityAction((*engine.Engine).UpdateProduct),
	"delete_product": deleteAction((*engine.Engine).DeleteProduct),

	"create_station": entityAction((*engine.Engine).CreateStation),
	"update_station": entityAction((*engine.Engine).UpdateStation),
	"delete_station": deleteAction((*engine.Engine).DeleteStation),

	"create_event": entityAction((*engine.Engine).CreateEvent),
	"update_event": entityAction((*engine.Engine).UpdateEvent),
	"delete_event": deleteAction((*engine.Engine).DeleteEvent),

	"update_settings": entityAction((*engine.Engine).UpdateSettings),

	"create_order": func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			Items []engine.NewOrderItem `json:"items"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		order, items, err := eng.CreateOrder(ctx, in.Items)
		return createdOrder{Order: order, Items: items}, err
	},
	"delete_order": deleteAction((*engine.Engine).DeleteOrder),

	"create_order_item": func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			OrderID string `json:"order_id"`
			engine.NewOrderItem
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return eng.CreateOrderItem(ctx, in.OrderID, in.NewOrderItem)
	},
	"update_order_item": func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			ID string `json:"id"`
			engine.ItemPatch
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return eng.UpdateOrderItem(ctx, in.ID, in.ItemPatch)
	},
	"bulk_update_status": func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			IDs    []string     `json:"ids"`
			Status model.Status `json:"status"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return eng.BulkUpdateOrderItemStatus(ctx, in.IDs, in.Status)
	},
	"delete_order_item": deleteAction((*engine.Engine).DeleteOrderItem),

	"advance_item": func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			StationID string `json:"station_id"`
			ItemID    string `json:"item_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return eng.AdvanceItem(ctx, in.StationID, in.ItemID)
	},
}

// createdOrder is the result of create_order.
type createdOrder struct {
	Order model.Order       `json:"order"`
	Items []model.OrderItem `json:"items"`
}

// Actions lists the action names a step may use.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func entityAction[T any](fn func(*engine.Engine, context.Context, T) (T, error)) action {
	return func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in T
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return fn(eng, ctx, in)
	}
}

func deleteAction(fn func(*engine.Engine, context.Context, string) error) action {
	return func(ctx context.Context, eng *engine.Engine, args []byte) (any, error) {
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return nil, fn(eng, ctx, in.ID)
	}
}

// decodeArgs decodes strictly so a misspelled argument fails the scenario
// instead of silently defaulting.
func decodeArgs(args []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &argsError{err: err}
	}
	return nil
}

// errorKind classifies an engine error for expect.error.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case engine.IsRecomputeError(err):
		return ErrorRecompute
	case model.IsValidation(err):
		return ErrorValidation
	case model.IsNotFound(err):
		return ErrorNotFound
	default:
		return "internal"
	}
}
