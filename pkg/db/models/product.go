package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

// Product is the catalog row the inventory ledger guards. Stock is only
// ever mutated through guarded updates, never read-modify-write.
type Product struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name      string              `gorm:"column:name;not null"`
	SKU       string              `gorm:"column:sku"`
	Price     decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice *decimal.Decimal    `gorm:"column:sale_price;type:numeric(12,2)"`
	WeightKg  decimal.Decimal     `gorm:"column:weight_kg;type:numeric(8,3);not null;default:0"`
	Stock     int                 `gorm:"column:stock;not null;default:0"`
	Status    enums.ProductStatus `gorm:"column:status;type:text;not null;default:'active'"`
	ImageURL  string              `gorm:"column:image_url"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is what the customer actually pays per unit: the sale
// price while one is set, the list price otherwise.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
