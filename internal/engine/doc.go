// Package engine implements the kitchensync mutation engine and the order
// status aggregator.
//
// Every client-facing write goes through the Engine. A mutation validates
// its input, writes through the Store, and on success publishes one or more
// change envelopes to the bus. Validation and persistence failures are
// returned to the caller and never reach the bus.
//
// ARCHITECTURE:
//
// Derived Order State:
// An Order's status and total are never set by a client. Whenever one of
// its items is created, updated, or deleted, the engine reads the sibling
// items and writes the derived values onto the Order:
//
//	status = max(priority(item.status))
//	total  = sum(item.quantity * item.price) over items not Cancelled
//
// with Draft(0) < Ordered(1) < Ready(2) < Completed(3) < Cancelled(4).
// An order with no items reads Draft with total 0.
//
// Cascade Control:
// All item writes funnel through one update function. Its cascade flag
// decides whether the parent order is recomputed immediately. The bulk
// status path writes every item with cascade off, then recomputes each
// distinct order once.
//
// Consistency:
// Recomputation runs inline with the triggering request and is not wrapped
// in a transaction. Two concurrent writes to items of the same order can
// race, and the last write to the Order wins. If recomputation fails after
// the item write succeeded, the item write stands, its envelope is
// published, and the Order is left stale until the next recomputation.
package engine
