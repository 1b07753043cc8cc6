package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/model"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	categories, err := s.ListCategories(t.Context())
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.NotNil(t, categories, "list returns an empty slice, not nil")
}

func TestCategoryCRUD(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.CreateCategory(ctx, model.Category{ID: "c1", Name: "Drinks"}))
	require.NoError(t, s.CreateCategory(ctx, model.Category{ID: "c2", Name: "Grill"}))

	got, err := s.GetCategory(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Drinks", got.Name)

	require.NoError(t, s.UpdateCategory(ctx, model.Category{ID: "c1", Name: "Beverages"}))
	all, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: "c1", Name: "Beverages"}, {ID: "c2", Name: "Grill"}}, all)

	require.NoError(t, s.DeleteCategory(ctx, "c1"))
	_, err = s.GetCategory(ctx, "c1")
	assert.True(t, model.IsNotFound(err))
}

func TestNotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	_, err := s.GetProduct(ctx, "missing")
	assert.True(t, model.IsNotFound(err))

	err = s.UpdateProduct(ctx, model.Product{ID: "missing", Name: "x"})
	assert.True(t, model.IsNotFound(err))

	err = s.DeleteOrderItem(ctx, "missing")
	assert.True(t, model.IsNotFound(err))

	err = s.UpdateOrder(ctx, model.Order{ID: "missing"})
	assert.True(t, model.IsNotFound(err))
}

func TestStation_ListsRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	st := model.Station{
		ID:            "s1",
		Name:          "Grill",
		CategoryIDs:   []string{"c1", "c2"},
		InputStatuses: []model.Status{model.StatusOrdered},
		OutputStatus:  model.StatusReady,
	}
	require.NoError(t, s.CreateStation(ctx, st))

	got, err := s.GetStation(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	// Nil slices are stored as empty arrays.
	require.NoError(t, s.CreateStation(ctx, model.Station{ID: "s2", Name: "Pass", OutputStatus: model.StatusCompleted}))
	got, err = s.GetStation(ctx, "s2")
	require.NoError(t, err)
	assert.NotNil(t, got.CategoryIDs)
	assert.Empty(t, got.CategoryIDs)
	assert.NotNil(t, got.InputStatuses)
}

func TestCreateOrder_AssignsSequentialIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	for i, id := range []string{"o1", "o2", "o3"} {
		o, err := s.CreateOrder(ctx, model.Order{ID: id, Status: model.StatusDraft, SequentialID: 99})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), o.SequentialID)
	}

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "o3", orders[2].ID)
}

func TestOrderItems_ByOrderAndForeignKeys(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	_, p := seedCatalog(t, s)

	_, err := s.CreateOrder(ctx, model.Order{ID: "o1", Status: model.StatusDraft})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, model.Order{ID: "o2", Status: model.StatusDraft})
	require.NoError(t, err)

	require.NoError(t, s.CreateOrderItem(ctx, model.OrderItem{ID: "i1", OrderID: "o1", ItemID: p.ID, Quantity: 1, Price: p.Price, Status: model.StatusOrdered}))
	require.NoError(t, s.CreateOrderItem(ctx, model.OrderItem{ID: "i2", OrderID: "o2", ItemID: p.ID, Quantity: 2, Price: p.Price, Status: model.StatusOrdered}))
	require.NoError(t, s.CreateOrderItem(ctx, model.OrderItem{ID: "i3", OrderID: "o1", ItemID: p.ID, Quantity: 3, Price: p.Price, Status: model.StatusReady}))

	items, err := s.ListOrderItemsByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "i1", items[0].ID)
	assert.Equal(t, "i3", items[1].ID)

	// Referential integrity: the order must exist.
	err = s.CreateOrderItem(ctx, model.OrderItem{ID: "i4", OrderID: "nope", ItemID: p.ID, Quantity: 1, Status: model.StatusDraft})
	assert.Error(t, err)

	// An order with items cannot be deleted out from under them.
	assert.Error(t, s.DeleteOrder(ctx, "o2"))

	n, err := s.CountOrderItemsForProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpdateOrderItem_KeepsPriceSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	_, p := seedCatalog(t, s)

	_, err := s.CreateOrder(ctx, model.Order{ID: "o1", Status: model.StatusDraft})
	require.NoError(t, err)
	require.NoError(t, s.CreateOrderItem(ctx, model.OrderItem{ID: "i1", OrderID: "o1", ItemID: p.ID, Quantity: 1, Price: 850, Status: model.StatusOrdered}))

	// Price in the update is ignored; only quantity and status are written.
	require.NoError(t, s.UpdateOrderItem(ctx, model.OrderItem{ID: "i1", Quantity: 2, Price: 1, Status: model.StatusReady}))

	got, err := s.GetOrderItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(850), got.Price)
	assert.Equal(t, int64(2), got.Quantity)
	assert.Equal(t, model.StatusReady, got.Status)
	assert.Equal(t, "o1", got.OrderID)
}

func TestSettings_DefaultAndUpsert(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SettingsID, settings.ID)
	assert.Nil(t, settings.ActiveEventID)

	require.NoError(t, s.CreateEvent(ctx, model.Event{ID: "e1", Name: "Summer Fest"}))
	active := "e1"
	require.NoError(t, s.UpdateSettings(ctx, model.Settings{ID: model.SettingsID, ActiveEventID: &active}))

	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.ActiveEventID)
	assert.Equal(t, "e1", *settings.ActiveEventID)

	n, err := s.CountSettingsReferencingEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.UpdateSettings(ctx, model.Settings{ID: model.SettingsID}))
	settings, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings.ActiveEventID)
}
