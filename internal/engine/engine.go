package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/kitchensync/internal/model"
)

// Store is the persistence layer the engine writes through.
// Implemented by *store.Store.
//
// Get, Update, and Delete return an error wrapping model.ErrNotFound when
// the entity does not exist.
type Store interface {
	CreateCategory(ctx context.Context, c model.Category) error
	GetCategory(ctx context.Context, id string) (model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CountProductsInCategory(ctx context.Context, categoryID string) (int, error)

	CreateProduct(ctx context.Context, p model.Product) error
	GetProduct(ctx context.Context, id string) (model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	CreateStation(ctx context.Context, st model.Station) error
	GetStation(ctx context.Context, id string) (model.Station, error)
	ListStations(ctx context.Context) ([]model.Station, error)
	UpdateStation(ctx context.Context, st model.Station) error
	DeleteStation(ctx context.Context, id string) error

	CreateEvent(ctx context.Context, e model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	CountSettingsReferencingEvent(ctx context.Context, eventID string) (int, error)

	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) error
	DeleteOrder(ctx context.Context, id string) error

	CreateOrderItem(ctx context.Context, i model.OrderItem) error
	GetOrderItem(ctx context.Context, id string) (model.OrderItem, error)
	ListOrderItemsByOrder(ctx context.Context, orderID string) ([]model.OrderItem, error)
	UpdateOrderItem(ctx context.Context, i model.OrderItem) error
	DeleteOrderItem(ctx context.Context, id string) error
	CountOrderItemsForProduct(ctx context.Context, productID string) (int, error)

	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) error
}

// Publisher receives the change envelopes of successful mutations.
// Implemented by *bus.Bus.
type Publisher interface {
	Publish(env model.Envelope) int
}

// IDGenerator generates entity ids for creates that do not carry one.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Engine validates and applies mutations, maintains derived order state,
// and publishes change envelopes.
//
// Thread-safety model:
//   - All methods are safe to call from concurrent request goroutines
//   - Recomputation is not serialized per order (see package docs)
type Engine struct {
	store  Store
	bus    Publisher
	ids    IDGenerator
	logger *slog.Logger

	recomputations atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine writing through s and publishing to pub.
// A nil ids uses UUIDv7Generator.
func New(s Store, pub Publisher, ids IDGenerator, opts ...Option) *Engine {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	e := &Engine{
		store:  s,
		bus:    pub,
		ids:    ids,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recomputations returns how many order recomputations have run.
func (e *Engine) Recomputations() int64 {
	return e.recomputations.Load()
}

// assignID fills in an id for creates that did not bring one.
func (e *Engine) assignID(id string) string {
	if id == "" {
		return e.ids.Generate()
	}
	return id
}

// ensureAbsent rejects a create whose caller-chosen id is already taken.
func ensureAbsent[T any](ctx context.Context, get func(context.Context, string) (T, error), t model.EntityType, id string) error {
	_, err := get(ctx, id)
	switch {
	case err == nil:
		return model.Invalid("id", "%s %q already exists", t, id)
	case model.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("check %s %q: %w", t, id, err)
	}
}

func (e *Engine) publishAdded(entity model.Entity) {
	e.publish(model.Added(entity))
}

func (e *Engine) publishUpdated(entity model.Entity) {
	e.publish(model.Updated(entity))
}

func (e *Engine) publishDeleted(t model.EntityType, id string) {
	e.publish(model.Deleted(t, id))
}

// publish sends env to the bus. The write it describes has already
// succeeded, so an encoding failure is logged rather than returned.
func (e *Engine) publish(env model.Envelope, err error) {
	if err != nil {
		e.logger.Error("envelope encoding failed", "error", err)
		return
	}
	n := e.bus.Publish(env)
	e.logger.Debug("mutation published",
		"entity_type", env.EntityType,
		"operation", env.Operation,
		"subscribers", n,
	)
}
