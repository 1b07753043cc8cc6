package model

// SettingsID is the fixed identity of the Settings singleton.
const SettingsID = "settings"

// Entity is implemented by every synchronized entity type.
type Entity interface {
	EntityType() EntityType
	EntityID() string
}

// Category groups products on the cashier terminal and routes them to stations.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable catalog entry. Price is in cents.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Price      int64  `json:"price"`
	Active     bool   `json:"active"`
}

// Station is a kitchen work area. It picks up items of its categories while
// they are in one of InputStatuses and moves them to OutputStatus.
type Station struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CategoryIDs   []string `json:"category_ids"`
	InputStatuses []Status `json:"input_statuses"`
	OutputStatus  Status   `json:"output_status"`
}

// Order is the cashier-side aggregate. Status and TotalPrice are derived
// from the order's items and are never set by a client.
type Order struct {
	ID           string `json:"id"`
	SequentialID int64  `json:"sequential_id"`
	TotalPrice   int64  `json:"total_price"`
	Status       Status `json:"status"`
}

// OrderItem is one line of an order. ItemID references the Product, and
// Price is the product price captured when the item was created.
type OrderItem struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Status   Status `json:"status"`
}

// Settings is the platform-wide singleton.
type Settings struct {
	ID            string  `json:"id"`
	ActiveEventID *string `json:"active_event_id,omitempty"`
}

// Event is a catering event the platform is running for.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c Category) EntityType() EntityType  { return EntityCategory }
func (c Category) EntityID() string        { return c.ID }
func (p Product) EntityType() EntityType   { return EntityProduct }
func (p Product) EntityID() string         { return p.ID }
func (s Station) EntityType() EntityType   { return EntityStation }
func (s Station) EntityID() string         { return s.ID }
func (o Order) EntityType() EntityType     { return EntityOrder }
func (o Order) EntityID() string           { return o.ID }
func (i OrderItem) EntityType() EntityType { return EntityOrderItem }
func (i OrderItem) EntityID() string       { return i.ID }
func (s Settings) EntityType() EntityType  { return EntitySettings }
func (s Settings) EntityID() string        { return SettingsID }
func (e Event) EntityType() EntityType     { return EntityEvent }
func (e Event) EntityID() string           { return e.ID }

// Accepts reports whether the station picks up items in the given status.
func (s Station) Accepts(status Status) bool {
	for _, in := range s.InputStatuses {
		if in == status {
			return true
		}
	}
	return false
}

// Handles reports whether the station is responsible for the category.
func (s Station) Handles(categoryID string) bool {
	for _, id := range s.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// Bounds on item quantity and product price in cents. Together they keep
// line and order totals well inside int64.
const (
	MaxQuantity int64 = 10_000
	MaxPrice    int64 = 100_000_000
)

// LineTotal is quantity times the snapshotted price.
func (i OrderItem) LineTotal() int64 {
	return i.Quantity * i.Price
}
