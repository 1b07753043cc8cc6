package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/model"
)

func TestEngine_NewDefaults(t *testing.T) {
	e := New(setupTestStore(t), nil, nil)

	assert.NotNil(t, e.logger)
	assert.IsType(t, UUIDv7Generator{}, e.ids)
	assert.Equal(t, int64(0), e.Recomputations())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("ord")

	assert.Equal(t, "ord-1", gen.Generate())
	assert.Equal(t, "ord-2", gen.Generate())
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestCreateCategory_PublishesAdd(t *testing.T) {
	te := newTestEngine(t)

	c, err := te.CreateCategory(context.Background(), model.Category{Name: "  Drinks "})
	require.NoError(t, err)
	assert.Equal(t, "id-1", c.ID)
	assert.Equal(t, "Drinks", c.Name)

	envs := te.drain()
	require.Len(t, envs, 1)
	assert.Equal(t, model.OpAdd, envs[0].Operation)
	got, err := model.DecodePayload[model.Category](envs[0])
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCreateCategory_ExplicitIDMustBeFree(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	_, err := te.CreateCategory(ctx, model.Category{ID: "drinks", Name: "Drinks"})
	require.NoError(t, err)

	_, err = te.CreateCategory(ctx, model.Category{ID: "drinks", Name: "More drinks"})
	assert.True(t, model.IsValidation(err))
}

func TestValidationErrorsAreNotPublished(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 100)

	tests := []struct {
		name string
		run  func() error
	}{
		{"empty category name", func() error {
			_, err := te.CreateCategory(ctx, model.Category{Name: "   "})
			return err
		}},
		{"negative price", func() error {
			_, err := te.CreateProduct(ctx, model.Product{Name: "Fries", CategoryID: p.CategoryID, Price: -1})
			return err
		}},
		{"unknown category", func() error {
			_, err := te.CreateProduct(ctx, model.Product{Name: "Fries", CategoryID: "nope"})
			return err
		}},
		{"unknown station status", func() error {
			_, err := te.CreateStation(ctx, model.Station{Name: "Grill", OutputStatus: "Burnt"})
			return err
		}},
		{"zero quantity", func() error {
			_, _, err := te.CreateOrder(ctx, []NewOrderItem{{ItemID: p.ID, Quantity: 0}})
			return err
		}},
		{"unknown product", func() error {
			_, _, err := te.CreateOrder(ctx, []NewOrderItem{{ItemID: "ghost", Quantity: 1}})
			return err
		}},
		{"quantity that would overflow the total", func() error {
			_, _, err := te.CreateOrder(ctx, []NewOrderItem{{ItemID: p.ID, Quantity: math.MaxInt64 / 50}})
			return err
		}},
		{"price above limit", func() error {
			_, err := te.CreateProduct(ctx, model.Product{Name: "Gold", CategoryID: p.CategoryID, Price: model.MaxPrice + 1})
			return err
		}},
		{"category in use", func() error {
			return te.DeleteCategory(ctx, p.CategoryID)
		}},
		{"unknown active event", func() error {
			id := "ghost"
			_, err := te.UpdateSettings(ctx, model.Settings{ActiveEventID: &id})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, model.IsValidation(err), "got %v", err)
			assert.Empty(t, te.drain(), "validation errors must not reach the bus")
		})
	}
}

func TestInactiveProductCannotBeOrdered(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 100)

	p.Active = false
	_, err := te.UpdateProduct(ctx, p)
	require.NoError(t, err)

	_, _, err = te.CreateOrder(ctx, []NewOrderItem{{ItemID: p.ID, Quantity: 1}})
	assert.True(t, model.IsValidation(err))
}

func TestUpdateMissingEntity_NotFound(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	_, err := te.UpdateCategory(ctx, model.Category{ID: "missing", Name: "X"})
	assert.True(t, model.IsNotFound(err))

	_, err = te.UpdateOrderItem(ctx, "missing", StatusPatch(model.StatusReady))
	assert.True(t, model.IsNotFound(err))

	assert.True(t, model.IsNotFound(te.DeleteOrder(ctx, "missing")))
	assert.Empty(t, te.drain())
}

func TestCreateOrder_PublishOrder(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 300)

	order, items, err := te.CreateOrder(ctx, []NewOrderItem{
		{ItemID: p.ID, Quantity: 2, Status: model.StatusOrdered},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.SequentialID)
	assert.Equal(t, int64(600), order.TotalPrice)
	assert.Equal(t, int64(300), items[0].Price)
	assert.Equal(t, order.ID, items[0].OrderID)

	assert.Equal(t, []published{
		{model.EntityOrder, model.OpAdd},
		{model.EntityOrderItem, model.OpAdd},
		{model.EntityOrder, model.OpUpdate},
	}, summarize(te.drain()))

	empty, _, err := te.CreateOrder(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), empty.SequentialID)
	assert.Equal(t, model.StatusDraft, empty.Status)
	assert.Equal(t, []published{{model.EntityOrder, model.OpAdd}}, summarize(te.drain()))
}

func TestDeleteOrder_DeletesItemsFirst(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 100)

	order, _, err := te.CreateOrder(ctx, []NewOrderItem{
		{ItemID: p.ID, Quantity: 1},
		{ItemID: p.ID, Quantity: 1},
	})
	require.NoError(t, err)
	te.drain()

	require.NoError(t, te.DeleteOrder(ctx, order.ID))
	assert.Equal(t, []published{
		{model.EntityOrderItem, model.OpDelete},
		{model.EntityOrderItem, model.OpDelete},
		{model.EntityOrder, model.OpDelete},
	}, summarize(te.drain()))

	_, err = te.store.GetOrder(ctx, order.ID)
	assert.True(t, model.IsNotFound(err))
}

func TestDeleteProduct_BlockedByOrderItems(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 100)

	order, _, err := te.CreateOrder(ctx, []NewOrderItem{{ItemID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	assert.True(t, model.IsValidation(te.DeleteProduct(ctx, p.ID)))

	require.NoError(t, te.DeleteOrder(ctx, order.ID))
	require.NoError(t, te.DeleteProduct(ctx, p.ID))
}

func TestDeleteCategory_BlockedByStation(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	cat, err := te.CreateCategory(ctx, model.Category{Name: "Desserts"})
	require.NoError(t, err)
	st, err := te.CreateStation(ctx, model.Station{
		Name:          "Pastry",
		CategoryIDs:   []string{cat.ID},
		InputStatuses: []model.Status{model.StatusOrdered},
		OutputStatus:  model.StatusReady,
	})
	require.NoError(t, err)

	assert.True(t, model.IsValidation(te.DeleteCategory(ctx, cat.ID)))

	require.NoError(t, te.DeleteStation(ctx, st.ID))
	require.NoError(t, te.DeleteCategory(ctx, cat.ID))
}

func TestAdvanceItem(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)
	p := te.seedProduct(t, 100)

	other, err := te.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)
	kitchen, err := te.CreateStation(ctx, model.Station{
		Name:          "Kitchen",
		CategoryIDs:   []string{p.CategoryID},
		InputStatuses: []model.Status{model.StatusOrdered},
		OutputStatus:  model.StatusReady,
	})
	require.NoError(t, err)
	bar, err := te.CreateStation(ctx, model.Station{
		Name:          "Bar",
		CategoryIDs:   []string{other.ID},
		InputStatuses: []model.Status{model.StatusOrdered},
		OutputStatus:  model.StatusReady,
	})
	require.NoError(t, err)

	order, items, err := te.CreateOrder(ctx, []NewOrderItem{{ItemID: p.ID, Quantity: 1, Status: model.StatusOrdered}})
	require.NoError(t, err)

	_, err = te.AdvanceItem(ctx, bar.ID, items[0].ID)
	assert.True(t, model.IsValidation(err), "bar does not handle mains")

	item, err := te.AdvanceItem(ctx, kitchen.ID, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, item.Status)
	assert.Equal(t, model.StatusReady, te.order(t, order.ID).Status)

	_, err = te.AdvanceItem(ctx, kitchen.ID, items[0].ID)
	assert.True(t, model.IsValidation(err), "ready items are not an input of the kitchen")
}

func TestSettings_ActiveEvent(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t)

	ev, err := te.CreateEvent(ctx, model.Event{Name: "Summer fair"})
	require.NoError(t, err)

	s, err := te.UpdateSettings(ctx, model.Settings{ActiveEventID: &ev.ID})
	require.NoError(t, err)
	assert.Equal(t, model.SettingsID, s.ID)
	require.NotNil(t, s.ActiveEventID)
	assert.Equal(t, ev.ID, *s.ActiveEventID)

	assert.True(t, model.IsValidation(te.DeleteEvent(ctx, ev.ID)), "active event cannot be deleted")

	empty := ""
	s, err = te.UpdateSettings(ctx, model.Settings{ActiveEventID: &empty})
	require.NoError(t, err)
	assert.Nil(t, s.ActiveEventID)
	require.NoError(t, te.DeleteEvent(ctx, ev.ID))
}

func TestStation_NilListsPublishAsEmpty(t *testing.T) {
	te := newTestEngine(t)

	st, err := te.CreateStation(context.Background(), model.Station{Name: "Expo", OutputStatus: model.StatusCompleted})
	require.NoError(t, err)
	assert.NotNil(t, st.CategoryIDs)
	assert.NotNil(t, st.InputStatuses)

	envs := te.drain()
	require.Len(t, envs, 1)
	assert.Contains(t, string(envs[0].Payload), `"category_ids":[]`)
}
