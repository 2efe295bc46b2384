package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/enums"
	"github.com/hatbazar/marketplace-backend/pkg/types"
)

// CreateItemInput is one requested line of a new order.
type CreateItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput carries everything needed to settle a new order.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	Items           []CreateItemInput
	CouponCode      string
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
}

// CustomerOrderFilters describe the inputs supported by the customer orders list.
type CustomerOrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderItemDetail is the API shape of one settled line.
type OrderItemDetail struct {
	ID        uuid.UUID             `json:"id"`
	ProductID uuid.UUID             `json:"product_id"`
	VendorID  uuid.UUID             `json:"vendor_id"`
	Quantity  int                   `json:"quantity"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	LineTotal decimal.Decimal       `json:"line_total"`
	Product   types.ProductSnapshot `json:"product"`
}

// OrderDetail is the full API shape of an order.
type OrderDetail struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Discount        decimal.Decimal     `json:"discount"`
	Tax             decimal.Decimal     `json:"tax"`
	ShippingFee     decimal.Decimal     `json:"shipping_fee"`
	Total           decimal.Decimal     `json:"total"`
	CouponCode      *string             `json:"coupon_code,omitempty"`
	ShippingAddress types.Address       `json:"shipping_address"`
	TransactionID   *string             `json:"transaction_id,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	Items           []OrderItemDetail   `json:"items"`
	Warnings        []string            `json:"warnings,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderSummary is the condensed shape returned in list responses.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
	TotalItems    int                 `json:"total_items"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
