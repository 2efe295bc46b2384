package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	internalorders "github.com/hatbazar/marketplace-backend/internal/orders"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/types"
)

type createItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type addressRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	District   string `json:"district" validate:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone" validate:"required"`
}

type createOrderRequest struct {
	Items           []createItemRequest `json:"items" validate:"required,min=1,dive"`
	CouponCode      string              `json:"coupon_code"`
	PaymentMethod   string              `json:"payment_method" validate:"required,oneof=wallet bank cod"`
	ShippingAddress addressRequest      `json:"shipping_address" validate:"required"`
}

func (req createOrderRequest) toInput(customerID uuid.UUID) (internalorders.CreateOrderInput, error) {
	items := make([]internalorders.CreateItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
				WithDetails(map[string]string{"product_id": item.ProductID})
		}
		items = append(items, internalorders.CreateItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	return internalorders.CreateOrderInput{
		CustomerID:    customerID,
		Items:         items,
		CouponCode:    strings.TrimSpace(req.CouponCode),
		PaymentMethod: method,
		ShippingAddress: types.Address{
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			District:   req.ShippingAddress.District,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
			Phone:      req.ShippingAddress.Phone,
		},
	}, nil
}

func buildCustomerFilters(status, paymentStatus, dateFrom, dateTo string) (internalorders.CustomerOrderFilters, error) {
	var filters internalorders.CustomerOrderFilters

	if status != "" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &parsed
	}
	if paymentStatus != "" {
		parsed, err := enums.ParsePaymentStatus(paymentStatus)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter")
		}
		filters.PaymentStatus = &parsed
	}
	if dateFrom != "" {
		parsed, err := time.Parse(time.RFC3339, dateFrom)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_from must be RFC3339")
		}
		filters.DateFrom = &parsed
	}
	if dateTo != "" {
		parsed, err := time.Parse(time.RFC3339, dateTo)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "date_to must be RFC3339")
		}
		filters.DateTo = &parsed
	}
	return filters, nil
}
