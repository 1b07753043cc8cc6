package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/kitchensync/internal/bridge"
	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/model"
)

// Reader serves the read-all and get-by-id routes. Implemented by
// *store.Store.
type Reader interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id string) (model.Category, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	ListStations(ctx context.Context) ([]model.Station, error)
	GetStation(ctx context.Context, id string) (model.Station, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrderItems(ctx context.Context) ([]model.OrderItem, error)
	GetOrderItem(ctx context.Context, id string) (model.OrderItem, error)
	GetSettings(ctx context.Context) (model.Settings, error)
}

// App holds the dependencies of the HTTP handlers.
type App struct {
	engine  *engine.Engine
	reader  Reader
	ws      *bridge.Bridge
	auth    *Auth
	logger  *slog.Logger
	started time.Time
}

// NewApp creates the handler set. A nil auth allows every request and a
// nil logger uses slog.Default().
func NewApp(eng *engine.Engine, reader Reader, ws *bridge.Bridge, auth *Auth, logger *slog.Logger) *App {
	if auth == nil {
		auth = NewAuth(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		engine:  eng,
		reader:  reader,
		ws:      ws,
		auth:    auth,
		logger:  logger,
		started: time.Now(),
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// --- Generic collection handlers ---

func listOf[T any](a *App, list func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context())
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getOf[T any](a *App, get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), r.PathValue("id"))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func createOf[T any](a *App, create func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if !decodeBody(w, r, &in) {
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// updateOf decodes the body and forces the id from the path onto it.
func updateOf[T any](a *App, setID func(*T, string), update func(context.Context, T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if !decodeBody(w, r, &in) {
			return
		}
		setID(&in, r.PathValue("id"))
		out, err := update(r.Context(), in)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteOf(a *App, del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), r.PathValue("id")); err != nil {
			a.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Orders ---

type createOrderRequest struct {
	Items []engine.NewOrderItem `json:"items"`
}

type orderResponse struct {
	Order model.Order       `json:"order"`
	Items []model.OrderItem `json:"items"`
}

func (a *App) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, items, err := a.engine.CreateOrder(r.Context(), req.Items)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Order: order, Items: items})
}

// --- Order items ---

type createOrderItemRequest struct {
	OrderID string `json:"order_id"`
	engine.NewOrderItem
}

func (a *App) createOrderItemHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "order_id: must not be empty")
		return
	}
	item, err := a.engine.CreateOrderItem(r.Context(), req.OrderID, req.NewOrderItem)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *App) updateOrderItemHandler(w http.ResponseWriter, r *http.Request) {
	var patch engine.ItemPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	item, err := a.engine.UpdateOrderItem(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type bulkStatusRequest struct {
	IDs    []string     `json:"ids"`
	Status model.Status `json:"status"`
}

type itemsResponse struct {
	Items []model.OrderItem `json:"items"`
}

func (a *App) bulkStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items, err := a.engine.BulkUpdateOrderItemStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

type advanceRequest struct {
	ItemID string `json:"item_id"`
}

func (a *App) advanceHandler(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := a.engine.AdvanceItem(r.Context(), r.PathValue("id"), req.ItemID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// --- Settings ---

func (a *App) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	s, err := a.reader.GetSettings(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *App) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var s model.Settings
	if !decodeBody(w, r, &s) {
		return
	}
	if s.ID != "" && s.ID != model.SettingsID {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("id: settings id is always %q", model.SettingsID))
		return
	}
	out, err := a.engine.UpdateSettings(r.Context(), s)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Health ---

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"uptime_sec":     time.Since(a.started).Seconds(),
		"recomputations": a.engine.Recomputations(),
	}
	if a.ws != nil {
		resp["ws_connections"] = a.ws.Connections()
	}
	writeJSON(w, http.StatusOK, resp)
}
