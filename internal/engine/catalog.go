package engine

import (
	"context"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

// --- Categories ---

// CreateCategory creates a category and publishes an Add.
func (e *Engine) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	name, err := requireName(c.Name)
	if err != nil {
		return model.Category{}, err
	}
	c.Name = name
	if c.ID != "" {
		if err := ensureAbsent(ctx, e.store.GetCategory, model.EntityCategory, c.ID); err != nil {
			return model.Category{}, err
		}
	}
	c.ID = e.assignID(c.ID)

	if err := e.store.CreateCategory(ctx, c); err != nil {
		return model.Category{}, err
	}
	e.publishAdded(c)
	return c, nil
}

// UpdateCategory renames a category and publishes an Update.
func (e *Engine) UpdateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	name, err := requireName(c.Name)
	if err != nil {
		return model.Category{}, err
	}
	c.Name = name

	if err := e.store.UpdateCategory(ctx, c); err != nil {
		return model.Category{}, err
	}
	e.publishUpdated(c)
	return c, nil
}

// DeleteCategory deletes a category no product or station refers to.
func (e *Engine) DeleteCategory(ctx context.Context, id string) error {
	if _, err := e.store.GetCategory(ctx, id); err != nil {
		return err
	}

	products, err := e.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 {
		return inUseError(model.EntityCategory, id, products, "products")
	}

	stations, err := e.store.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("delete category %q: %w", id, err)
	}
	using := 0
	for _, st := range stations {
		if st.Handles(id) {
			using++
		}
	}
	if using > 0 {
		return inUseError(model.EntityCategory, id, using, "stations")
	}

	if err := e.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityCategory, id)
	return nil
}

// --- Products ---

func (e *Engine) validateProduct(ctx context.Context, p *model.Product) error {
	name, err := requireName(p.Name)
	if err != nil {
		return err
	}
	p.Name = name
	if err := requirePrice(p.Price); err != nil {
		return err
	}
	if p.CategoryID == "" {
		return model.Invalid("category_id", "must not be empty")
	}
	if _, err := e.store.GetCategory(ctx, p.CategoryID); err != nil {
		return referenceError(err, "category_id", model.EntityCategory, p.CategoryID)
	}
	return nil
}

// CreateProduct creates a product and publishes an Add.
func (e *Engine) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if err := e.validateProduct(ctx, &p); err != nil {
		return model.Product{}, err
	}
	if p.ID != "" {
		if err := ensureAbsent(ctx, e.store.GetProduct, model.EntityProduct, p.ID); err != nil {
			return model.Product{}, err
		}
	}
	p.ID = e.assignID(p.ID)

	if err := e.store.CreateProduct(ctx, p); err != nil {
		return model.Product{}, err
	}
	e.publishAdded(p)
	return p, nil
}

// UpdateProduct replaces a product and publishes an Update. Existing order
// items keep the price they were created with.
func (e *Engine) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if err := e.validateProduct(ctx, &p); err != nil {
		return model.Product{}, err
	}
	if err := e.store.UpdateProduct(ctx, p); err != nil {
		return model.Product{}, err
	}
	e.publishUpdated(p)
	return p, nil
}

// DeleteProduct deletes a product no order item refers to.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	if _, err := e.store.GetProduct(ctx, id); err != nil {
		return err
	}
	n, err := e.store.CountOrderItemsForProduct(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return inUseError(model.EntityProduct, id, n, "order items")
	}

	if err := e.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityProduct, id)
	return nil
}

// --- Stations ---

func (e *Engine) validateStation(ctx context.Context, st *model.Station) error {
	name, err := requireName(st.Name)
	if err != nil {
		return err
	}
	st.Name = name

	if st.CategoryIDs == nil {
		st.CategoryIDs = []string{}
	}
	if st.InputStatuses == nil {
		st.InputStatuses = []model.Status{}
	}
	for _, id := range st.CategoryIDs {
		if _, err := e.store.GetCategory(ctx, id); err != nil {
			return referenceError(err, "category_ids", model.EntityCategory, id)
		}
	}
	for _, status := range st.InputStatuses {
		if err := requireStatus("input_statuses", status); err != nil {
			return err
		}
	}
	return requireStatus("output_status", st.OutputStatus)
}

// CreateStation creates a station and publishes an Add.
func (e *Engine) CreateStation(ctx context.Context, st model.Station) (model.Station, error) {
	if err := e.validateStation(ctx, &st); err != nil {
		return model.Station{}, err
	}
	if st.ID != "" {
		if err := ensureAbsent(ctx, e.store.GetStation, model.EntityStation, st.ID); err != nil {
			return model.Station{}, err
		}
	}
	st.ID = e.assignID(st.ID)

	if err := e.store.CreateStation(ctx, st); err != nil {
		return model.Station{}, err
	}
	e.publishAdded(st)
	return st, nil
}

// UpdateStation replaces a station and publishes an Update.
func (e *Engine) UpdateStation(ctx context.Context, st model.Station) (model.Station, error) {
	if err := e.validateStation(ctx, &st); err != nil {
		return model.Station{}, err
	}
	if err := e.store.UpdateStation(ctx, st); err != nil {
		return model.Station{}, err
	}
	e.publishUpdated(st)
	return st, nil
}

// DeleteStation deletes a station.
func (e *Engine) DeleteStation(ctx context.Context, id string) error {
	if err := e.store.DeleteStation(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityStation, id)
	return nil
}

// --- Events ---

// CreateEvent creates an event and publishes an Add.
func (e *Engine) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	name, err := requireName(ev.Name)
	if err != nil {
		return model.Event{}, err
	}
	ev.Name = name
	if ev.ID != "" {
		if err := ensureAbsent(ctx, e.store.GetEvent, model.EntityEvent, ev.ID); err != nil {
			return model.Event{}, err
		}
	}
	ev.ID = e.assignID(ev.ID)

	if err := e.store.CreateEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	e.publishAdded(ev)
	return ev, nil
}

// UpdateEvent renames an event and publishes an Update.
func (e *Engine) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	name, err := requireName(ev.Name)
	if err != nil {
		return model.Event{}, err
	}
	ev.Name = name

	if err := e.store.UpdateEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	e.publishUpdated(ev)
	return ev, nil
}

// DeleteEvent deletes an event that is not the active event.
func (e *Engine) DeleteEvent(ctx context.Context, id string) error {
	if _, err := e.store.GetEvent(ctx, id); err != nil {
		return err
	}
	n, err := e.store.CountSettingsReferencingEvent(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return inUseError(model.EntityEvent, id, n, "settings")
	}

	if err := e.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	e.publishDeleted(model.EntityEvent, id)
	return nil
}

// --- Settings ---

// UpdateSettings replaces the settings singleton and publishes an Update.
// An empty active event id clears the active event.
func (e *Engine) UpdateSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	s.ID = model.SettingsID
	if s.ActiveEventID != nil && *s.ActiveEventID == "" {
		s.ActiveEventID = nil
	}
	if s.ActiveEventID != nil {
		if _, err := e.store.GetEvent(ctx, *s.ActiveEventID); err != nil {
			return model.Settings{}, referenceError(err, "active_event_id", model.EntityEvent, *s.ActiveEventID)
		}
	}

	if err := e.store.UpdateSettings(ctx, s); err != nil {
		return model.Settings{}, err
	}
	e.publishUpdated(s)
	return s, nil
}
