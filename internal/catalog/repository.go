package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository persists catalog rows. Rows are append-only.
type Repository interface {
	// Create inserts a row and returns it with its generated fields.
	Create(ctx context.Context, name string, price *decimal.Decimal, imageRef string) (*Item, error)
	// List returns every row in insertion order.
	List(ctx context.Context) ([]Item, error)
}

// formatPrice renders a price for storage, nil meaning NULL.
func formatPrice(price *decimal.Decimal) *string {
	if price == nil {
		return nil
	}
	s := price.StringFixed(2)
	return &s
}

// parsePrice is the inverse of formatPrice.
func parsePrice(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
