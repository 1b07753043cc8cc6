package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/kitchensync/internal/model"
)

// Loader reads a whole collection.
type Loader[T model.Entity] func(ctx context.Context) ([]T, error)

// Cache is an ordered, id-keyed collection of one entity type.
//
// Thread-safety model:
//   - Apply(): safe from any goroutine, but envelopes must be applied in
//     delivery order, which in practice means one consumer goroutine
//   - Bootstrap(): must not run concurrently with another Bootstrap
//   - View methods: safe from any goroutine
type Cache[T model.Entity] struct {
	entityType model.EntityType
	logger     *slog.Logger

	mu            sync.Mutex
	items         []T
	index         map[string]int
	version       uint64
	bootstrapping bool
	pending       []change[T]
	watchers      map[chan struct{}]struct{}
}

// change is a decoded envelope.
type change[T model.Entity] struct {
	op   model.Operation
	id   string
	item T
}

// New creates an empty cache. T must be a value entity type such as
// model.Order. A nil logger uses slog.Default().
func New[T model.Entity](logger *slog.Logger) *Cache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	var zero T
	et := zero.EntityType()
	return &Cache[T]{
		entityType: et,
		logger:     logger.With("entity_type", et),
		index:      make(map[string]int),
		watchers:   make(map[chan struct{}]struct{}),
	}
}

// EntityType returns the entity type this cache holds.
func (c *Cache[T]) EntityType() model.EntityType {
	return c.entityType
}

// Bootstrap calls load once and replaces the collection with its result.
//
// Envelopes applied while load runs are buffered and replayed afterwards.
// If load fails, the cache keeps its prior contents, the buffered
// envelopes are still applied, and the error is logged and returned.
func (c *Cache[T]) Bootstrap(ctx context.Context, load Loader[T]) error {
	c.mu.Lock()
	c.bootstrapping = true
	c.mu.Unlock()

	items, err := load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.bootstrapping = false
	if err == nil {
		c.replaceLocked(items)
	}
	pending := c.pending
	c.pending = nil
	for _, ch := range pending {
		c.applyLocked(ch)
	}
	c.bumpLocked()

	if err != nil {
		c.logger.Error("cache bootstrap failed", "error", err, "buffered", len(pending))
		return fmt.Errorf("bootstrap %s cache: %w", c.entityType, err)
	}
	c.logger.Debug("cache bootstrapped", "items", len(c.items), "buffered", len(pending))
	return nil
}

// Apply applies one envelope. An envelope for another entity type or with
// an undecodable payload is returned as an error and leaves the cache
// unchanged.
func (c *Cache[T]) Apply(env model.Envelope) error {
	ch, err := c.decode(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bootstrapping {
		c.pending = append(c.pending, ch)
		return nil
	}
	if c.applyLocked(ch) {
		c.bumpLocked()
	}
	return nil
}

// View returns a read-only view of the cache.
func (c *Cache[T]) View() *View[T] {
	return &View[T]{cache: c}
}

func (c *Cache[T]) decode(env model.Envelope) (change[T], error) {
	if env.EntityType != c.entityType {
		return change[T]{}, fmt.Errorf("%s cache cannot apply %s envelope", c.entityType, env.EntityType)
	}
	if err := env.Validate(); err != nil {
		return change[T]{}, err
	}

	if env.Operation == model.OpDelete {
		id, err := env.DeleteID()
		if err != nil {
			return change[T]{}, err
		}
		return change[T]{op: model.OpDelete, id: id}, nil
	}

	item, err := model.DecodePayload[T](env)
	if err != nil {
		return change[T]{}, err
	}
	id := item.EntityID()
	if id == "" {
		return change[T]{}, fmt.Errorf("%s %s payload has no id", env.EntityType, env.Operation)
	}
	return change[T]{op: env.Operation, id: id, item: item}, nil
}

// applyLocked applies ch and reports whether the collection changed.
func (c *Cache[T]) applyLocked(ch change[T]) bool {
	i, exists := c.index[ch.id]

	switch ch.op {
	case model.OpAdd:
		if exists {
			c.logger.Debug("duplicate add ignored", "id", ch.id)
			return false
		}
		c.index[ch.id] = len(c.items)
		c.items = append(c.items, ch.item)
		return true

	case model.OpUpdate:
		if !exists {
			c.logger.Info("update for unknown id ignored", "id", ch.id)
			return false
		}
		c.items[i] = ch.item
		return true

	case model.OpDelete:
		if !exists {
			return false
		}
		c.items = slices.Delete(c.items, i, i+1)
		c.reindexLocked()
		return true
	}
	return false
}

// replaceLocked installs a snapshot. Repeated ids keep the first entry.
func (c *Cache[T]) replaceLocked(items []T) {
	c.items = make([]T, 0, len(items))
	c.index = make(map[string]int, len(items))
	for _, item := range items {
		id := item.EntityID()
		if _, dup := c.index[id]; dup {
			continue
		}
		c.index[id] = len(c.items)
		c.items = append(c.items, item)
	}
}

func (c *Cache[T]) reindexLocked() {
	clear(c.index)
	for i, item := range c.items {
		c.index[item.EntityID()] = i
	}
}

// bumpLocked advances the version and signals watchers. Signals coalesce:
// a watcher that has not drained the previous signal gets no second one.
func (c *Cache[T]) bumpLocked() {
	c.version++
	for w := range c.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}
