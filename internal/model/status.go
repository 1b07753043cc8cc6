package model

import "fmt"

// Status is the lifecycle state of an order item, and the derived state of
// an order.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusOrdered   Status = "Ordered"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in priority order.
var Statuses = []Status{StatusDraft, StatusOrdered, StatusReady, StatusCompleted, StatusCancelled}

// Priority returns the aggregation rank of the status:
// Draft(0) < Ordered(1) < Ready(2) < Completed(3) < Cancelled(4).
//
// The ranking is used only to pick the dominant status among an order's
// items. It is not a lifecycle: Cancelled overrides any progress.
// Unknown statuses rank -1.
func (s Status) Priority() int {
	for i, known := range Statuses {
		if known == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.Priority() >= 0
}

// ParseStatus converts a string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// MaxStatus returns the highest-priority status among items.
// ok is false when items is empty.
func MaxStatus(items []OrderItem) (status Status, ok bool) {
	best := -1
	for _, item := range items {
		if p := item.Status.Priority(); p > best {
			best = p
			status = item.Status
		}
	}
	return status, best >= 0
}
