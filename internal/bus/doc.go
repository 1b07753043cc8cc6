// Package bus implements the process-wide change event bus.
//
// The Bus is an explicit service object: construct it once at startup and
// inject it into the mutation engine and every transport bridge. There is
// no package-level instance.
//
// ARCHITECTURE:
//
// One logical channel per entity type. A Subscription registers for one or
// more entity types and owns a single unbounded FIFO queue, so a subscriber
// observes one interleaved stream in exact publish order. Publish appends
// to each matching queue under that queue's own mutex and never waits for a
// consumer.
//
// Delivery semantics:
//   - No replay: a subscription sees only envelopes published after
//     Subscribe returns. Late subscribers bootstrap from the store.
//   - No drops: two publishes before a consumer wakes are both queued.
//   - Best effort for the life of the subscription; Close discards the
//     backlog.
//
// A subscriber that never drains grows its queue without bound. Sessions
// are short and entity counts small, so this is accepted; the optional
// backlog warning makes it visible in logs.
package bus
