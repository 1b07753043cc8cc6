package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/kitchensync/internal/model"
)

// Mutator is the subset of the mutation engine a seed run writes through.
type Mutator interface {
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	UpdateCategory(ctx context.Context, c model.Category) (model.Category, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) (model.Product, error)
	CreateStation(ctx context.Context, st model.Station) (model.Station, error)
	UpdateStation(ctx context.Context, st model.Station) (model.Station, error)
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error)
	UpdateSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

// Lookup tells Apply which catalog entries already exist.
type Lookup interface {
	GetCategory(ctx context.Context, id string) (model.Category, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	GetStation(ctx context.Context, id string) (model.Station, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
}

// Report counts what a seed run wrote.
type Report struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Apply writes the catalog through m: events, categories, products,
// stations, then the active event. Entries whose id already exists are
// updated, so applying the same catalog twice is safe.
//
// Apply stops at the first failing entry. Entries written before it stay.
func Apply(ctx context.Context, m Mutator, lookup Lookup, cat *Catalog, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var r Report

	for _, ev := range cat.Events {
		if err := upsert(ctx, &r, model.EntityEvent, ev.ID, lookup.GetEvent, m.CreateEvent, m.UpdateEvent, ev); err != nil {
			return r, err
		}
	}
	for _, c := range cat.Categories {
		if err := upsert(ctx, &r, model.EntityCategory, c.ID, lookup.GetCategory, m.CreateCategory, m.UpdateCategory, c); err != nil {
			return r, err
		}
	}
	for _, p := range cat.Products {
		if err := upsert(ctx, &r, model.EntityProduct, p.ID, lookup.GetProduct, m.CreateProduct, m.UpdateProduct, p); err != nil {
			return r, err
		}
	}
	for _, st := range cat.Stations {
		if err := upsert(ctx, &r, model.EntityStation, st.ID, lookup.GetStation, m.CreateStation, m.UpdateStation, st); err != nil {
			return r, err
		}
	}
	if cat.ActiveEvent != "" {
		id := cat.ActiveEvent
		if _, err := m.UpdateSettings(ctx, model.Settings{ActiveEventID: &id}); err != nil {
			return r, fmt.Errorf("seed settings: %w", err)
		}
		r.Updated++
	}

	logger.Info("catalog seeded", "created", r.Created, "updated", r.Updated)
	return r, nil
}

func upsert[T any](
	ctx context.Context,
	r *Report,
	t model.EntityType,
	id string,
	get func(context.Context, string) (T, error),
	create, update func(context.Context, T) (T, error),
	v T,
) error {
	_, err := get(ctx, id)
	switch {
	case err == nil:
		if _, err := update(ctx, v); err != nil {
			return fmt.Errorf("seed %s %q: %w", t, id, err)
		}
		r.Updated++
	case model.IsNotFound(err):
		if _, err := create(ctx, v); err != nil {
			return fmt.Errorf("seed %s %q: %w", t, id, err)
		}
		r.Created++
	default:
		return fmt.Errorf("seed %s %q: %w", t, id, err)
	}
	return nil
}
