package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kitchensync/internal/bridge"
	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/config"
	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/model"
	"github.com/roach88/kitchensync/internal/store"
)

type testApp struct {
	handler http.Handler
	bus     *bus.Bus
	engine  *engine.Engine
}

func setupApp(t *testing.T, tokens map[string]config.Role) *testApp {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/api.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	b := bus.New(nil)
	eng := engine.New(st, b, engine.NewSequenceGenerator("id"))
	app := NewApp(eng, st, bridge.New(b, nil), NewAuth(tokens), nil)
	return &testApp{handler: NewRouter(app), bus: b, engine: eng}
}

func (ta *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthzOK(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestIDPropagated(t *testing.T) {
	ta := setupApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", rr.Header().Get("X-Request-Id"))
}

func TestCatalogCRUD(t *testing.T) {
	ta := setupApp(t, nil)
	sub := ta.bus.Subscribe(model.EntityCategory)
	defer sub.Close()

	rr := ta.do(t, http.MethodPost, "/api/categories", "", map[string]any{"name": "Mains"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cat := decode[model.Category](t, rr)
	assert.Equal(t, "Mains", cat.Name)

	rr = ta.do(t, http.MethodPut, "/api/categories/"+cat.ID, "", map[string]any{"name": "Grill"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ta.do(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []model.Category{{ID: cat.ID, Name: "Grill"}}, decode[[]model.Category](t, rr))

	rr = ta.do(t, http.MethodDelete, "/api/categories/"+cat.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ta.do(t, http.MethodGet, "/api/categories/"+cat.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, 3, sub.Len(), "add, update, delete")
}

func TestEmptyListIsArray(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestValidationErrorIs400(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodPost, "/api/categories", "", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[jsonError](t, rr)
	assert.Equal(t, "validation_error", body.Error)
	assert.Contains(t, body.Details, "name")
}

func TestUnknownFieldRejected(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodPost, "/api/categories", "", map[string]any{"name": "Mains", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decode[jsonError](t, rr).Error)
}

func TestOrderFlow(t *testing.T) {
	ta := setupApp(t, nil)

	cat := decode[model.Category](t, ta.do(t, http.MethodPost, "/api/categories", "", map[string]any{"name": "Mains"}))
	prod := decode[model.Product](t, ta.do(t, http.MethodPost, "/api/products", "", map[string]any{
		"name": "Burger", "category_id": cat.ID, "price": 850, "active": true,
	}))
	station := decode[model.Station](t, ta.do(t, http.MethodPost, "/api/stations", "", map[string]any{
		"name": "Grill", "category_ids": []string{cat.ID}, "input_statuses": []string{"Ordered"}, "output_status": "Ready",
	}))

	rr := ta.do(t, http.MethodPost, "/api/orders", "", map[string]any{
		"items": []map[string]any{
			{"item_id": prod.ID, "quantity": 2, "status": "Ordered"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[orderResponse](t, rr)
	assert.Equal(t, int64(1700), created.Order.TotalPrice)
	require.Len(t, created.Items, 1)

	rr = ta.do(t, http.MethodPost, "/api/order-items", "", map[string]any{
		"order_id": created.Order.ID, "item_id": prod.ID, "quantity": 1, "status": "Ordered",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	second := decode[model.OrderItem](t, rr)

	rr = ta.do(t, http.MethodPost, "/api/stations/"+station.ID+"/advance", "", map[string]any{"item_id": second.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusReady, decode[model.OrderItem](t, rr).Status)

	rr = ta.do(t, http.MethodPost, "/api/order-items/bulk-status", "", map[string]any{
		"ids": []string{created.Items[0].ID, second.ID}, "status": "Completed",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[itemsResponse](t, rr).Items, 2)

	order := decode[model.Order](t, ta.do(t, http.MethodGet, "/api/orders/"+created.Order.ID, "", nil))
	assert.Equal(t, model.StatusCompleted, order.Status)

	quantity := int64(3)
	rr = ta.do(t, http.MethodPut, "/api/order-items/"+second.ID, "", engine.ItemPatch{Quantity: &quantity})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	order = decode[model.Order](t, ta.do(t, http.MethodGet, "/api/orders/"+created.Order.ID, "", nil))
	assert.Equal(t, int64(850*5), order.TotalPrice)

	rr = ta.do(t, http.MethodDelete, "/api/orders/"+created.Order.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.JSONEq(t, `[]`, ta.do(t, http.MethodGet, "/api/order-items", "", nil).Body.String())
}

func TestSettingsRoutes(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"settings"}`, rr.Body.String())

	ev := decode[model.Event](t, ta.do(t, http.MethodPost, "/api/events", "", map[string]any{"name": "Fair"}))
	rr = ta.do(t, http.MethodPut, "/api/settings", "", map[string]any{"active_event_id": ev.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ta.do(t, http.MethodPut, "/api/settings", "", map[string]any{"id": "other"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ta.do(t, http.MethodDelete, "/api/events/"+ev.ID, "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "active event is referenced")
}

func TestOrdersHaveNoPut(t *testing.T) {
	ta := setupApp(t, nil)

	rr := ta.do(t, http.MethodPut, "/api/orders/o1", "", map[string]any{"status": "Ready"})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAuthGate(t *testing.T) {
	ta := setupApp(t, map[string]config.Role{
		"admin-token":   config.RoleAdmin,
		"till-token":    config.RoleCashier,
		"kitchen-token": config.RoleStation,
	})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"no token", http.MethodGet, "/api/categories", "", nil, http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/categories", "guess", nil, http.StatusUnauthorized},
		{"station reads", http.MethodGet, "/api/categories", "kitchen-token", nil, http.StatusOK},
		{"cashier cannot edit catalog", http.MethodPost, "/api/categories", "till-token", map[string]any{"name": "X"}, http.StatusForbidden},
		{"admin edits catalog", http.MethodPost, "/api/categories", "admin-token", map[string]any{"name": "X"}, http.StatusCreated},
		{"station cannot create orders", http.MethodPost, "/api/orders", "kitchen-token", map[string]any{}, http.StatusForbidden},
		{"cashier creates orders", http.MethodPost, "/api/orders", "till-token", map[string]any{}, http.StatusCreated},
		{"health is open", http.MethodGet, "/healthz", "", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ta.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestAuthTokenFromQuery(t *testing.T) {
	ta := setupApp(t, map[string]config.Role{"station-token": config.RoleStation})

	rr := ta.do(t, http.MethodGet, "/api/orders?token=station-token", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
