package httpapi

import (
	"net/http"

	"github.com/roach88/kitchensync/internal/config"
	"github.com/roach88/kitchensync/internal/model"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
//
// Route permissions:
//   - reads and /ws: any authenticated caller
//   - catalog, events, settings: admin
//   - orders and order items: admin, cashier
//   - bulk item status: admin, cashier, station
//   - station advance: admin, station
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	auth := app.auth

	anyone := func(h http.Handler) http.Handler { return auth.Require(h) }
	admin := func(h http.Handler) http.Handler { return auth.Require(h, config.RoleAdmin) }
	till := func(h http.Handler) http.Handler {
		return auth.Require(h, config.RoleAdmin, config.RoleCashier)
	}

	eng, rd := app.engine, app.reader

	// Categories
	mux.Handle("GET /api/categories", anyone(listOf(app, rd.ListCategories)))
	mux.Handle("GET /api/categories/{id}", anyone(getOf(app, rd.GetCategory)))
	mux.Handle("POST /api/categories", admin(createOf(app, eng.CreateCategory)))
	mux.Handle("PUT /api/categories/{id}", admin(updateOf(app, func(c *model.Category, id string) { c.ID = id }, eng.UpdateCategory)))
	mux.Handle("DELETE /api/categories/{id}", admin(deleteOf(app, eng.DeleteCategory)))

	// Products
	mux.Handle("GET /api/products", anyone(listOf(app, rd.ListProducts)))
	mux.Handle("GET /api/products/{id}", anyone(getOf(app, rd.GetProduct)))
	mux.Handle("POST /api/products", admin(createOf(app, eng.CreateProduct)))
	mux.Handle("PUT /api/products/{id}", admin(updateOf(app, func(p *model.Product, id string) { p.ID = id }, eng.UpdateProduct)))
	mux.Handle("DELETE /api/products/{id}", admin(deleteOf(app, eng.DeleteProduct)))

	// Stations
	mux.Handle("GET /api/stations", anyone(listOf(app, rd.ListStations)))
	mux.Handle("GET /api/stations/{id}", anyone(getOf(app, rd.GetStation)))
	mux.Handle("POST /api/stations", admin(createOf(app, eng.CreateStation)))
	mux.Handle("PUT /api/stations/{id}", admin(updateOf(app, func(st *model.Station, id string) { st.ID = id }, eng.UpdateStation)))
	mux.Handle("DELETE /api/stations/{id}", admin(deleteOf(app, eng.DeleteStation)))
	mux.Handle("POST /api/stations/{id}/advance",
		auth.Require(http.HandlerFunc(app.advanceHandler), config.RoleAdmin, config.RoleStation))

	// Events
	mux.Handle("GET /api/events", anyone(listOf(app, rd.ListEvents)))
	mux.Handle("GET /api/events/{id}", anyone(getOf(app, rd.GetEvent)))
	mux.Handle("POST /api/events", admin(createOf(app, eng.CreateEvent)))
	mux.Handle("PUT /api/events/{id}", admin(updateOf(app, func(ev *model.Event, id string) { ev.ID = id }, eng.UpdateEvent)))
	mux.Handle("DELETE /api/events/{id}", admin(deleteOf(app, eng.DeleteEvent)))

	// Orders: status and total are derived, so there is no PUT.
	mux.Handle("GET /api/orders", anyone(listOf(app, rd.ListOrders)))
	mux.Handle("GET /api/orders/{id}", anyone(getOf(app, rd.GetOrder)))
	mux.Handle("POST /api/orders", till(http.HandlerFunc(app.createOrderHandler)))
	mux.Handle("DELETE /api/orders/{id}", till(deleteOf(app, eng.DeleteOrder)))

	// Order items
	mux.Handle("GET /api/order-items", anyone(listOf(app, rd.ListOrderItems)))
	mux.Handle("GET /api/order-items/{id}", anyone(getOf(app, rd.GetOrderItem)))
	mux.Handle("POST /api/order-items", till(http.HandlerFunc(app.createOrderItemHandler)))
	mux.Handle("PUT /api/order-items/{id}", till(http.HandlerFunc(app.updateOrderItemHandler)))
	mux.Handle("DELETE /api/order-items/{id}", till(deleteOf(app, eng.DeleteOrderItem)))
	mux.Handle("POST /api/order-items/bulk-status",
		auth.Require(http.HandlerFunc(app.bulkStatusHandler), config.RoleAdmin, config.RoleCashier, config.RoleStation))

	// Settings
	mux.Handle("GET /api/settings", anyone(http.HandlerFunc(app.getSettingsHandler)))
	mux.Handle("PUT /api/settings", admin(http.HandlerFunc(app.updateSettingsHandler)))

	mux.HandleFunc("GET /healthz", app.healthHandler)
	if app.ws != nil {
		mux.Handle("GET /ws", anyone(app.ws))
	}

	return WithRequestID(WithLogging(app.logger, mux))
}
