package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

// PayoutRequest is a vendor's claim on their accrued commission share.
// Pending requests count against the withdrawable balance until an
// admin resolves them.
type PayoutRequest struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Note        *string            `gorm:"column:note"`
	ResolvedBy  *uuid.UUID         `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt  *time.Time         `gorm:"column:resolved_at"`
	RequestedAt time.Time          `gorm:"column:requested_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
