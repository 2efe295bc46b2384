package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/coupons"
	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
)

type stubCouponRepo struct {
	coupon *models.Coupon
}

func (s *stubCouponRepo) WithTx(tx *gorm.DB) coupons.Repository {
	return s
}

func (s *stubCouponRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.coupon == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.coupon, nil
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRate:        decimal.RequireFromString("0.13"),
		CommissionRate: decimal.RequireFromString("0.10"),
		ShippingBase:   decimal.NewFromInt(100),
		ShippingPerKg:  decimal.Zero,
	}
}

func mustEqual(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: expected %s, got %s", name, want, got)
	}
}

func TestQuoteBasics(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testPricingConfig(), &stubCouponRepo{})
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 2}}

	quote, err := engine.Quote(context.Background(), items, "", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	mustEqual(t, "subtotal", quote.Subtotal, decimal.NewFromInt(1000))
	mustEqual(t, "discount", quote.Discount, decimal.Zero)
	mustEqual(t, "tax", quote.Tax, decimal.NewFromInt(130))
	mustEqual(t, "shipping", quote.ShippingFee, decimal.NewFromInt(100))
	mustEqual(t, "total", quote.Total, decimal.NewFromInt(1230))
}

func TestQuotePercentageCoupon(t *testing.T) {
	t.Parallel()

	repo := &stubCouponRepo{coupon: &models.Coupon{
		Code:         "SAVE10",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(10),
		Active:       true,
	}}
	engine := NewEngine(testPricingConfig(), repo)
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 2}}

	quote, err := engine.Quote(context.Background(), items, "SAVE10", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	mustEqual(t, "discount", quote.Discount, decimal.NewFromInt(100))
	mustEqual(t, "total", quote.Total, decimal.NewFromInt(1130))
	if quote.CouponCode != "SAVE10" {
		t.Fatalf("expected coupon code recorded, got %q", quote.CouponCode)
	}
	if len(quote.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", quote.Warnings)
	}
}

func TestQuoteFixedCouponCappedAtSubtotal(t *testing.T) {
	t.Parallel()

	repo := &stubCouponRepo{coupon: &models.Coupon{
		Code:         "MEGA",
		DiscountType: enums.DiscountTypeFixed,
		Value:        decimal.NewFromInt(2000),
		Active:       true,
	}}
	engine := NewEngine(testPricingConfig(), repo)
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 2}}

	quote, err := engine.Quote(context.Background(), items, "MEGA", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	mustEqual(t, "discount", quote.Discount, decimal.NewFromInt(1000))
	// Tax still applies to the undiscounted subtotal.
	mustEqual(t, "tax", quote.Tax, decimal.NewFromInt(130))
	mustEqual(t, "total", quote.Total, decimal.NewFromInt(230))
}

func TestQuoteUnknownCouponWarnsWithoutFailing(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testPricingConfig(), &stubCouponRepo{})
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 2}}

	quote, err := engine.Quote(context.Background(), items, "NOPE", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	mustEqual(t, "discount", quote.Discount, decimal.Zero)
	mustEqual(t, "total", quote.Total, decimal.NewFromInt(1230))
	if len(quote.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", quote.Warnings)
	}
	if quote.CouponCode != "" {
		t.Fatalf("unredeemed coupon must not be recorded, got %q", quote.CouponCode)
	}
}

func TestQuoteExpiredCouponWarns(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	repo := &stubCouponRepo{coupon: &models.Coupon{
		Code:         "OLD",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(10),
		Active:       true,
		ValidUntil:   &past,
	}}
	engine := NewEngine(testPricingConfig(), repo)
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 2}}

	quote, err := engine.Quote(context.Background(), items, "OLD", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	mustEqual(t, "discount", quote.Discount, decimal.Zero)
	if len(quote.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", quote.Warnings)
	}
}

func TestQuoteWeightBasedShipping(t *testing.T) {
	t.Parallel()

	cfg := testPricingConfig()
	cfg.ShippingPerKg = decimal.NewFromInt(50)
	engine := NewEngine(cfg, &stubCouponRepo{})
	items := []QuoteItem{
		{UnitPrice: decimal.NewFromInt(500), Quantity: 2, WeightKg: decimal.NewFromInt(1)},
	}

	quote, err := engine.Quote(context.Background(), items, "", time.Now())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	// base 100 + 50/kg over 2kg
	mustEqual(t, "shipping", quote.ShippingFee, decimal.NewFromInt(200))
}

func TestQuoteEmptyItems(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testPricingConfig(), &stubCouponRepo{})

	_, err := engine.Quote(context.Background(), nil, "", time.Now())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuoteNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testPricingConfig(), &stubCouponRepo{})
	items := []QuoteItem{{UnitPrice: decimal.NewFromInt(500), Quantity: 0}}

	_, err := engine.Quote(context.Background(), items, "", time.Now())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}
