package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

// --- Categories ---

// CreateCategory inserts a category.
func (s *Store) CreateCategory(ctx context.Context, c model.Category) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (model.Category, error) {
	return queryOne(ctx, s.db, model.EntityCategory, id, scanCategory,
		`SELECT id, name FROM categories WHERE id = ?`)
}

// ListCategories returns every category in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	out, err := queryList(ctx, s.db, scanCategory, `SELECT id, name FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// UpdateCategory replaces a category's fields.
func (s *Store) UpdateCategory(ctx context.Context, c model.Category) error {
	return s.execAffecting(ctx, model.EntityCategory, c.ID, "update",
		`UPDATE categories SET name = ? WHERE id = ?`, c.Name, c.ID)
}

// DeleteCategory removes a category.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityCategory, id, "delete",
		`DELETE FROM categories WHERE id = ?`, id)
}

func scanCategory(row scanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

// --- Products ---

const productColumns = `id, name, category_id, price, active`

// CreateProduct inserts a product.
func (s *Store) CreateProduct(ctx context.Context, p model.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.CategoryID, p.Price, p.Active)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (model.Product, error) {
	return queryOne(ctx, s.db, model.EntityProduct, id, scanProduct,
		`SELECT `+productColumns+` FROM products WHERE id = ?`)
}

// ListProducts returns every product in insertion order.
func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	out, err := queryList(ctx, s.db, scanProduct, `SELECT `+productColumns+` FROM products ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// UpdateProduct replaces a product's fields. Existing order items keep the
// price they were created with.
func (s *Store) UpdateProduct(ctx context.Context, p model.Product) error {
	return s.execAffecting(ctx, model.EntityProduct, p.ID, "update",
		`UPDATE products SET name = ?, category_id = ?, price = ?, active = ? WHERE id = ?`,
		p.Name, p.CategoryID, p.Price, p.Active, p.ID)
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityProduct, id, "delete",
		`DELETE FROM products WHERE id = ?`, id)
}

// CountProductsInCategory returns how many products reference the category.
func (s *Store) CountProductsInCategory(ctx context.Context, categoryID string) (int, error) {
	n, err := s.count(ctx, `SELECT COUNT(*) FROM products WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("count products in category %q: %w", categoryID, err)
	}
	return n, nil
}

func scanProduct(row scanner) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Active)
	return p, err
}

// --- Stations ---

const stationColumns = `id, name, category_ids, input_statuses, output_status`

// CreateStation inserts a station.
func (s *Store) CreateStation(ctx context.Context, st model.Station) error {
	categories, statuses, err := marshalStationLists(st)
	if err != nil {
		return fmt.Errorf("create station: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stations (`+stationColumns+`) VALUES (?, ?, ?, ?, ?)`,
		st.ID, st.Name, categories, statuses, string(st.OutputStatus))
	if err != nil {
		return fmt.Errorf("create station: %w", err)
	}
	return nil
}

// GetStation retrieves a station by id.
func (s *Store) GetStation(ctx context.Context, id string) (model.Station, error) {
	return queryOne(ctx, s.db, model.EntityStation, id, scanStation,
		`SELECT `+stationColumns+` FROM stations WHERE id = ?`)
}

// ListStations returns every station in insertion order.
func (s *Store) ListStations(ctx context.Context) ([]model.Station, error) {
	out, err := queryList(ctx, s.db, scanStation, `SELECT `+stationColumns+` FROM stations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return out, nil
}

// UpdateStation replaces a station's fields.
func (s *Store) UpdateStation(ctx context.Context, st model.Station) error {
	categories, statuses, err := marshalStationLists(st)
	if err != nil {
		return fmt.Errorf("update station: %w", err)
	}
	return s.execAffecting(ctx, model.EntityStation, st.ID, "update",
		`UPDATE stations SET name = ?, category_ids = ?, input_statuses = ?, output_status = ? WHERE id = ?`,
		st.Name, categories, statuses, string(st.OutputStatus), st.ID)
}

// DeleteStation removes a station.
func (s *Store) DeleteStation(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityStation, id, "delete",
		`DELETE FROM stations WHERE id = ?`, id)
}

func scanStation(row scanner) (model.Station, error) {
	var st model.Station
	var categories, statuses, output string
	if err := row.Scan(&st.ID, &st.Name, &categories, &statuses, &output); err != nil {
		return st, err
	}
	st.OutputStatus = model.Status(output)
	st.CategoryIDs = []string{}
	st.InputStatuses = []model.Status{}
	if err := json.Unmarshal([]byte(categories), &st.CategoryIDs); err != nil {
		return st, fmt.Errorf("decode station %q category_ids: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(statuses), &st.InputStatuses); err != nil {
		return st, fmt.Errorf("decode station %q input_statuses: %w", st.ID, err)
	}
	return st, nil
}

// marshalStationLists encodes the slice columns. Nil slices are stored as
// empty arrays so reads never produce JSON null.
func marshalStationLists(st model.Station) (string, string, error) {
	categoryIDs := st.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []string{}
	}
	inputStatuses := st.InputStatuses
	if inputStatuses == nil {
		inputStatuses = []model.Status{}
	}
	categories, err := json.Marshal(categoryIDs)
	if err != nil {
		return "", "", fmt.Errorf("marshal category_ids: %w", err)
	}
	statuses, err := json.Marshal(inputStatuses)
	if err != nil {
		return "", "", fmt.Errorf("marshal input_statuses: %w", err)
	}
	return string(categories), string(statuses), nil
}

// --- Events ---

// CreateEvent inserts an event.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO events (id, name) VALUES (?, ?)`, e.ID, e.Name); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return queryOne(ctx, s.db, model.EntityEvent, id, scanEvent,
		`SELECT id, name FROM events WHERE id = ?`)
}

// ListEvents returns every event in insertion order.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	out, err := queryList(ctx, s.db, scanEvent, `SELECT id, name FROM events ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// UpdateEvent replaces an event's fields.
func (s *Store) UpdateEvent(ctx context.Context, e model.Event) error {
	return s.execAffecting(ctx, model.EntityEvent, e.ID, "update",
		`UPDATE events SET name = ? WHERE id = ?`, e.Name, e.ID)
}

// DeleteEvent removes an event.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.execAffecting(ctx, model.EntityEvent, id, "delete",
		`DELETE FROM events WHERE id = ?`, id)
}

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name)
	return e, err
}
