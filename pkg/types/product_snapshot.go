package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductSnapshot freezes the catalog fields an order item depends on
// at the moment the order is placed. Later catalog edits never change
// what the customer agreed to pay.
type ProductSnapshot struct {
	Name      string           `json:"name"`
	SKU       string           `json:"sku,omitempty"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
	WeightKg  decimal.Decimal  `json:"weight_kg"`
	ImageURL  string           `json:"image_url,omitempty"`
}

// Value marshals ProductSnapshot into a jsonb literal.
func (p ProductSnapshot) Value() (driver.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("product snapshot: marshal %w", err)
	}
	return string(raw), nil
}

// Scan decodes the jsonb literal.
func (p *ProductSnapshot) Scan(value interface{}) error {
	if value == nil {
		*p = ProductSnapshot{}
		return nil
	}

	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("product snapshot: unsupported scan type %T", value)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("product snapshot: unmarshal %w", err)
	}
	return nil
}
