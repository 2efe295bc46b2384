package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/coupons"
	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
)

// QuoteItem is one order line priced from the product snapshot.
type QuoteItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
	WeightKg  decimal.Decimal
}

// Quote is the full monetary breakdown of an order. Once stored on the
// order it is never recomputed.
type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	CouponCode  string
	Warnings    []string
}

// Engine computes order totals from configured rates. Tax applies to the
// undiscounted subtotal; shipping is a deterministic function of weight.
type Engine struct {
	cfg     config.PricingConfig
	coupons coupons.Repository
}

// NewEngine builds a pricing engine with the configured rates.
func NewEngine(cfg config.PricingConfig, couponRepo coupons.Repository) *Engine {
	return &Engine{cfg: cfg, coupons: couponRepo}
}

// CommissionRate exposes the configured platform take rate.
func (e *Engine) CommissionRate() decimal.Decimal {
	return e.cfg.CommissionRate
}

// Quote prices the given items. An unknown or expired coupon does not
// fail the order; it yields zero discount plus a warning the caller can
// surface.
func (e *Engine) Quote(ctx context.Context, items []QuoteItem, couponCode string, now time.Time) (*Quote, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	subtotal := decimal.Zero
	totalWeight := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))
		totalWeight = totalWeight.Add(item.WeightKg.Mul(qty))
	}
	subtotal = subtotal.Round(2)

	quote := &Quote{Subtotal: subtotal, Discount: decimal.Zero}

	if couponCode != "" {
		discount, warning, err := e.resolveDiscount(ctx, subtotal, couponCode, now)
		if err != nil {
			return nil, err
		}
		quote.Discount = discount
		if warning != "" {
			quote.Warnings = append(quote.Warnings, warning)
		} else {
			quote.CouponCode = couponCode
		}
	}

	quote.Tax = subtotal.Mul(e.cfg.TaxRate).Round(2)
	quote.ShippingFee = e.cfg.ShippingBase.Add(e.cfg.ShippingPerKg.Mul(totalWeight)).Round(2)
	quote.Total = subtotal.Sub(quote.Discount).Add(quote.Tax).Add(quote.ShippingFee).Round(2)

	return quote, nil
}

func (e *Engine) resolveDiscount(ctx context.Context, subtotal decimal.Decimal, code string, now time.Time) (decimal.Decimal, string, error) {
	coupon, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, "coupon code not recognized", nil
		}
		return decimal.Zero, "", err
	}
	if !coupon.IsRedeemable(now) {
		return decimal.Zero, "coupon is not currently redeemable", nil
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
	case enums.DiscountTypeFixed:
		discount = coupon.Value
	default:
		return decimal.Zero, "", pkgerrors.New(pkgerrors.CodeInternal, "unknown discount type")
	}

	// A fixed coupon larger than the subtotal discounts the whole
	// subtotal, never into negative territory.
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, "", nil
}
