package engine

import (
	"github.com/roach88/kitchensync/internal/model"
)

// requireName normalizes a display name and rejects empty results.
func requireName(name string) (string, error) {
	normalized := model.NormalizeName(name)
	if normalized == "" {
		return "", model.Invalid("name", "must not be empty")
	}
	return normalized, nil
}

func requirePrice(price int64) error {
	if price < 0 {
		return model.Invalid("price", "must not be negative, got %d", price)
	}
	if price > model.MaxPrice {
		return model.Invalid("price", "must be at most %d, got %d", model.MaxPrice, price)
	}
	return nil
}

func requireQuantity(quantity int64) error {
	if quantity < 1 {
		return model.Invalid("quantity", "must be at least 1, got %d", quantity)
	}
	if quantity > model.MaxQuantity {
		return model.Invalid("quantity", "must be at most %d, got %d", model.MaxQuantity, quantity)
	}
	return nil
}

func requireStatus(field string, status model.Status) error {
	if !status.Valid() {
		return model.Invalid(field, "unknown status %q", status)
	}
	return nil
}
