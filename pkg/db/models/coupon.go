package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

// Coupon is a promotional code applied against the order subtotal.
type Coupon struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string             `gorm:"column:code;uniqueIndex:ux_coupons_code;not null"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	Value        decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	ValidFrom    *time.Time         `gorm:"column:valid_from"`
	ValidUntil   *time.Time         `gorm:"column:valid_until"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsRedeemable reports whether the coupon may discount an order placed at now.
func (c Coupon) IsRedeemable(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}
