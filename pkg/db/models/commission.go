package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission is the vendor's earned share of one order item:
// commission_amount is what the vendor can withdraw, net_amount is the
// remainder the marketplace keeps. The unique index on order_item_id
// makes booking exactly-once under retries.
type Commission struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	OrderItemID      uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:ux_commissions_order_item"`
	VendorID         uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	GrossAmount      decimal.Decimal `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	CommissionRate   decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	NetAmount        decimal.Decimal `gorm:"column:net_amount;type:numeric(12,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
