package client

import (
	"sort"

	"github.com/roach88/kitchensync/internal/model"
)

// QueueEntry is one item waiting at a station.
type QueueEntry struct {
	Order   model.Order
	Item    model.OrderItem
	Product model.Product
}

// StationQueue lists the items the station can act on: items whose product
// belongs to one of the station's categories and whose status is one of
// its input statuses. Entries are ordered by the order's sequential id,
// then by item insertion order. ok is false when the station is unknown.
//
// Items whose order or product is not in the mirror yet are left out.
func (m *Mirror) StationQueue(stationID string) (entries []QueueEntry, ok bool) {
	station, ok := m.Stations.View().Get(stationID)
	if !ok {
		return nil, false
	}
	orders := m.Orders.View()
	products := m.Products.View()

	for _, item := range m.OrderItems.View().Items() {
		if !station.Accepts(item.Status) {
			continue
		}
		product, found := products.Get(item.ItemID)
		if !found || !station.Handles(product.CategoryID) {
			continue
		}
		order, found := orders.Get(item.OrderID)
		if !found {
			continue
		}
		entries = append(entries, QueueEntry{Order: order, Item: item, Product: product})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order.SequentialID < entries[j].Order.SequentialID
	})
	return entries, true
}
