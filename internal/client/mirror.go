// Package client mirrors server state into local caches.
//
// A Client dials the WebSocket bridge first, then bootstraps every cache
// concurrently while envelopes already flow into them. One goroutine reads
// the connection and applies envelopes, so each cache sees them in bus
// delivery order.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/roach88/kitchensync/internal/cache"
	"github.com/roach88/kitchensync/internal/model"
)

// DefaultBootstrapWorkers bounds concurrent read-all requests.
const DefaultBootstrapWorkers = 4

// Mirror holds one cache per entity type.
type Mirror struct {
	Categories *cache.Cache[model.Category]
	Products   *cache.Cache[model.Product]
	Stations   *cache.Cache[model.Station]
	Events     *cache.Cache[model.Event]
	Orders     *cache.Cache[model.Order]
	OrderItems *cache.Cache[model.OrderItem]
	Settings   *cache.Cache[model.Settings]

	logger *slog.Logger
}

// NewMirror creates a mirror with empty caches. A nil logger uses
// slog.Default().
func NewMirror(logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		Categories: cache.New[model.Category](logger),
		Products:   cache.New[model.Product](logger),
		Stations:   cache.New[model.Station](logger),
		Events:     cache.New[model.Event](logger),
		Orders:     cache.New[model.Order](logger),
		OrderItems: cache.New[model.OrderItem](logger),
		Settings:   cache.New[model.Settings](logger),
		logger:     logger,
	}
}

// Apply routes env to the cache for its entity type.
func (m *Mirror) Apply(env model.Envelope) error {
	switch env.EntityType {
	case model.EntityCategory:
		return m.Categories.Apply(env)
	case model.EntityProduct:
		return m.Products.Apply(env)
	case model.EntityStation:
		return m.Stations.Apply(env)
	case model.EntityEvent:
		return m.Events.Apply(env)
	case model.EntityOrder:
		return m.Orders.Apply(env)
	case model.EntityOrderItem:
		return m.OrderItems.Apply(env)
	case model.EntitySettings:
		return m.Settings.Apply(env)
	default:
		return fmt.Errorf("no cache for entity type %q", env.EntityType)
	}
}

// Bootstrap loads the caches for types (all types when empty) from src,
// at most workers at a time. Every cache is attempted; failures are joined.
// A failed cache keeps its prior contents.
func (m *Mirror) Bootstrap(ctx context.Context, src Source, workers int, types ...model.EntityType) error {
	if workers <= 0 {
		workers = DefaultBootstrapWorkers
	}
	if len(types) == 0 {
		types = model.EntityTypes
	}

	wp := workerpool.New(workers)
	var mu sync.Mutex
	var errs []error

	for _, t := range types {
		task, err := m.bootstrapTask(t, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		wp.Submit(func() {
			if err := task(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wp.StopWait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Debug("mirror bootstrapped", "entity_types", len(types))
	return nil
}

func (m *Mirror) bootstrapTask(t model.EntityType, src Source) (func(context.Context) error, error) {
	switch t {
	case model.EntityCategory:
		return func(ctx context.Context) error { return m.Categories.Bootstrap(ctx, src.Categories) }, nil
	case model.EntityProduct:
		return func(ctx context.Context) error { return m.Products.Bootstrap(ctx, src.Products) }, nil
	case model.EntityStation:
		return func(ctx context.Context) error { return m.Stations.Bootstrap(ctx, src.Stations) }, nil
	case model.EntityEvent:
		return func(ctx context.Context) error { return m.Events.Bootstrap(ctx, src.Events) }, nil
	case model.EntityOrder:
		return func(ctx context.Context) error { return m.Orders.Bootstrap(ctx, src.Orders) }, nil
	case model.EntityOrderItem:
		return func(ctx context.Context) error { return m.OrderItems.Bootstrap(ctx, src.OrderItems) }, nil
	case model.EntitySettings:
		return func(ctx context.Context) error { return m.Settings.Bootstrap(ctx, src.Settings) }, nil
	default:
		return nil, fmt.Errorf("no cache for entity type %q", t)
	}
}
