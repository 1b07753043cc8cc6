package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/kitchensync/internal/model"
)

// ErrClosed is returned by Subscription.Next after the subscription is closed.
var ErrClosed = errors.New("subscription closed")

// Bus fans change envelopes out to every current subscriber of the
// envelope's entity type.
//
// Thread-safety model:
//   - Publish(): safe from any goroutine, never blocks on subscribers
//   - Subscribe()/Close(): safe from any goroutine
//   - Subscription.Next(): one consumer goroutine per subscription
//
// Publishes are serialized under the registry mutex, so every subscriber
// observes concurrent publishes in the same relative order.
type Bus struct {
	mu          sync.Mutex
	logger      *slog.Logger
	subscribers map[model.EntityType]map[*Subscription]struct{}

	backlogWarning int
	nextID         uint64
	published      atomic.Uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithBacklogWarning logs a warning when a subscription's queue grows past
// n envelopes. Zero disables the warning.
func WithBacklogWarning(n int) Option {
	return func(b *Bus) {
		b.backlogWarning = n
	}
}

// New creates an empty bus. A nil logger uses slog.Default().
func New(logger *slog.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		logger:      logger,
		subscribers: make(map[model.EntityType]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers env to every subscription registered for its entity
// type and returns how many subscriptions received it.
func (b *Bus) Publish(env model.Envelope) int {
	b.mu.Lock()
	delivered := 0
	for sub := range b.subscribers[env.EntityType] {
		n, ok := sub.queue.Enqueue(env)
		if !ok {
			continue
		}
		delivered++
		sub.checkBacklog(n)
	}
	b.mu.Unlock()

	b.published.Add(1)
	b.logger.Debug("envelope published",
		"entity_type", env.EntityType,
		"operation", env.Operation,
		"subscribers", delivered,
	)
	return delivered
}

// Subscribe registers a subscription for the given entity types. All types
// share one queue. With no types the subscription covers every entity type.
//
// The subscription observes only envelopes published after Subscribe
// returns.
func (b *Bus) Subscribe(types ...model.EntityType) *Subscription {
	if len(types) == 0 {
		types = model.EntityTypes
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:    b.nextID,
		bus:   b,
		queue: newEnvelopeQueue(),
	}
	seen := make(map[model.EntityType]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		sub.types = append(sub.types, t)

		subs := b.subscribers[t]
		if subs == nil {
			subs = make(map[*Subscription]struct{})
			b.subscribers[t] = subs
		}
		subs[sub] = struct{}{}
	}

	b.logger.Debug("subscription added", "subscription", sub.id, "entity_types", sub.types)
	return sub
}

// SubscriberCount returns the number of live subscriptions for t.
func (b *Bus) SubscriberCount(t model.EntityType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[t])
}

// Published returns the total number of Publish calls.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// remove deregisters sub from every channel it joined.
func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range sub.types {
		subs := b.subscribers[t]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subscribers, t)
		}
	}
	b.logger.Debug("subscription removed", "subscription", sub.id)
}

// Subscription is one subscriber's ordered view of the bus.
type Subscription struct {
	id     uint64
	bus    *Bus
	types  []model.EntityType
	queue  *envelopeQueue
	warned atomic.Bool
	once   sync.Once
}

// ID returns a process-unique identifier for logging.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Types returns the entity types this subscription receives.
func (s *Subscription) Types() []model.EntityType {
	out := make([]model.EntityType, len(s.types))
	copy(out, s.types)
	return out
}

// Next blocks until the next envelope is available, ctx is done, or the
// subscription is closed.
func (s *Subscription) Next(ctx context.Context) (model.Envelope, error) {
	for {
		if env, ok := s.queue.TryDequeue(); ok {
			if s.bus.backlogWarning > 0 && s.queue.Len() <= s.bus.backlogWarning {
				s.warned.Store(false)
			}
			return env, nil
		}
		if s.queue.Closed() {
			return model.Envelope{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return model.Envelope{}, ctx.Err()
		case <-s.queue.Wait():
			// Signal received (or queue closed) - loop back to TryDequeue.
		}
	}
}

// TryNext returns the next envelope without blocking.
func (s *Subscription) TryNext() (model.Envelope, bool) {
	return s.queue.TryDequeue()
}

// Len returns the number of undelivered envelopes.
func (s *Subscription) Len() int {
	return s.queue.Len()
}

// Close deregisters the subscription and discards its backlog.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		s.queue.Close()
	})
}

// checkBacklog warns once each time the queue crosses the threshold.
func (s *Subscription) checkBacklog(n int) {
	limit := s.bus.backlogWarning
	if limit <= 0 || n <= limit {
		return
	}
	if s.warned.CompareAndSwap(false, true) {
		s.bus.logger.Warn("subscriber backlog exceeds warning threshold",
			"subscription", s.id,
			"backlog", n,
			"threshold", limit,
		)
	}
}
