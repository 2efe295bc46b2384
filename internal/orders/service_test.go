package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/internal/catalog"
	"github.com/hatbazar/marketplace-backend/internal/commissions"
	"github.com/hatbazar/marketplace-backend/internal/coupons"
	"github.com/hatbazar/marketplace-backend/internal/inventory"
	"github.com/hatbazar/marketplace-backend/internal/pricing"
	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
	"github.com/hatbazar/marketplace-backend/pkg/outbox"
	"github.com/hatbazar/marketplace-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) has(eventType enums.OutboxEventType) bool {
	for _, event := range s.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sku TEXT,
  price NUMERIC NOT NULL,
  sale_price NUMERIC,
  weight_kg NUMERIC NOT NULL DEFAULT 0,
  stock INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_type TEXT NOT NULL,
  value NUMERIC NOT NULL,
  valid_from DATETIME,
  valid_until DATETIME,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  discount NUMERIC NOT NULL DEFAULT 0,
  tax NUMERIC NOT NULL DEFAULT 0,
  shipping_fee NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  coupon_code TEXT,
  shipping_address TEXT,
  transaction_id TEXT,
  paid_at DATETIME,
  cancelled_at DATETIME,
  returned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  product_snapshot TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE commissions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  gross_amount NUMERIC NOT NULL,
  commission_rate NUMERIC NOT NULL,
  commission_amount NUMERIC NOT NULL,
  net_amount NUMERIC NOT NULL,
  created_at DATETIME
);
CREATE UNIQUE INDEX ux_commissions_order_item ON commissions (order_item_id);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		TaxRate:        decimal.RequireFromString("0.13"),
		CommissionRate: decimal.RequireFromString("0.10"),
		ShippingBase:   decimal.NewFromInt(100),
		ShippingPerKg:  decimal.Zero,
	}
}

func newTestService(t *testing.T, db *gorm.DB) (Service, *stubOutbox) {
	t.Helper()
	commissionSvc, err := commissions.NewService(commissions.NewRepository(db))
	if err != nil {
		t.Fatalf("new commissions service: %v", err)
	}
	box := &stubOutbox{}
	svc, err := NewService(
		NewRepository(db),
		catalog.NewRepository(db),
		inventory.NewLedger(),
		pricing.NewEngine(testPricingConfig(), coupons.NewRepository(db)),
		commissionSvc,
		&testTxRunner{db: db},
		box,
		nil,
	)
	if err != nil {
		t.Fatalf("new orders service: %v", err)
	}
	return svc, box
}

func seedProduct(t *testing.T, db *gorm.DB, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:       uuid.New(),
		VendorID: uuid.New(),
		Name:     "himalayan tea 500g",
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		Status:   enums.ProductStatusActive,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func testAddress() types.Address {
	return types.Address{
		Line1:    "Naya Sadak 12",
		City:     "Kathmandu",
		District: "Kathmandu",
		Phone:    "9800000000",
	}
}

func TestCreateOrderSettlesTotals(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, box := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !detail.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected subtotal 1000, got %s", detail.Subtotal)
	}
	if !detail.Tax.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("expected tax 130, got %s", detail.Tax)
	}
	if !detail.Total.Equal(decimal.NewFromInt(1230)) {
		t.Fatalf("expected total 1230, got %s", detail.Total)
	}
	if detail.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", detail.Status)
	}
	if len(detail.Items) != 1 || detail.Items[0].Product.Name != product.Name {
		t.Fatalf("product snapshot missing: %+v", detail.Items)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Stock != 3 {
		t.Fatalf("expected stock 3 after reservation, got %d", stored.Stock)
	}
	if !box.has(enums.EventOrderCreated) {
		t.Fatal("expected order_created event")
	}
}

func TestCreateOrderUsesSalePrice(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 600, 5)
	sale := decimal.NewFromInt(500)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("sale_price", sale).Error; err != nil {
		t.Fatalf("set sale price: %v", err)
	}

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The discounted price wins: 2 x 500, not 2 x 600.
	if !detail.Subtotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected subtotal 1000 at sale price, got %s", detail.Subtotal)
	}

	var item models.OrderItem
	if err := db.First(&item, "order_id = ?", detail.ID).Error; err != nil {
		t.Fatalf("load order item: %v", err)
	}
	if !item.UnitPrice.Equal(sale) {
		t.Fatalf("expected unit price 500, got %s", item.UnitPrice)
	}
	if item.ProductSnapshot.SalePrice == nil || !item.ProductSnapshot.SalePrice.Equal(sale) {
		t.Fatalf("snapshot must carry the sale price, got %+v", item.ProductSnapshot)
	}
	if !item.ProductSnapshot.Price.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("snapshot must keep the list price, got %s", item.ProductSnapshot.Price)
	}
}

func TestCreateOrderBooksCommissions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodWallet,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Commission rows land in the same transaction as the order itself.
	var rows []models.Commission
	if err := db.Find(&rows, "order_id = ?", detail.ID).Error; err != nil {
		t.Fatalf("load commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission booked at creation, got %d", len(rows))
	}
	if !rows[0].CommissionAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected commission 100, got %s", rows[0].CommissionAmount)
	}
	if rows[0].VendorID != product.VendorID {
		t.Fatal("commission booked for wrong vendor")
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	cheap := seedProduct(t, db, 100, 10)
	scarce := seedProduct(t, db, 500, 1)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID: uuid.New(),
		Items: []CreateItemInput{
			{ProductID: cheap.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
		PaymentMethod:   enums.PaymentMethodWallet,
		ShippingAddress: testAddress(),
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// The whole transaction must roll back, including the first reservation.
	var stored models.Product
	if err := db.First(&stored, "id = ?", cheap.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Stock != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", stored.Stock)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders, got %d", orderCount)
	}
}

func TestCreateOrderEmptyItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelPendingRestocks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, box := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	actor := Actor{UserID: customerID, Role: enums.MemberRoleCustomer}
	cancelled, err := svc.Cancel(context.Background(), detail.ID, actor)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", stored.Stock)
	}
	if !box.has(enums.EventOrderCancelled) {
		t.Fatal("expected order_cancelled event")
	}
}

func TestCancelPaidOrderKeepsStockReserved(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodWallet,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", detail.ID).
		Updates(map[string]any{
			"status":         enums.OrderStatusProcessing,
			"payment_status": enums.PaymentStatusCompleted,
		}).Error; err != nil {
		t.Fatalf("force captured: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), detail.ID, Actor{UserID: customerID, Role: enums.MemberRoleCustomer})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// Money already changed hands, so the goods stay reserved for the
	// refund flow instead of going back on the shelf.
	var stored models.Product
	if err := db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Stock != 3 {
		t.Fatalf("expected stock to stay at 3, got %d", stored.Stock)
	}
}

func TestCancelDeliveredRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", detail.ID).
		Update("status", enums.OrderStatusDelivered).Error; err != nil {
		t.Fatalf("force delivered: %v", err)
	}

	_, err = svc.Cancel(context.Background(), detail.ID, Actor{UserID: customerID, Role: enums.MemberRoleCustomer})
	if err == nil {
		t.Fatal("expected invalid transition")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelForeignOrderForbidden(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Cancel(context.Background(), detail.ID, Actor{UserID: uuid.New(), Role: enums.MemberRoleCustomer})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdvanceLifecycleAndCashCapture(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, box := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}
	for _, target := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		if detail, err = svc.Advance(context.Background(), detail.ID, target, admin); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}

	if detail.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", detail.Status)
	}
	if detail.PaymentStatus != enums.PaymentStatusCompleted {
		t.Fatalf("cash delivery must capture payment, got %s", detail.PaymentStatus)
	}
	if !box.has(enums.EventCashCollected) {
		t.Fatal("expected cash_collected event")
	}

	// Commission booked exactly once: 10% of 1000 gross.
	var rows []models.Commission
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load commissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(rows))
	}
	if !rows[0].CommissionAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected commission 100, got %s", rows[0].CommissionAmount)
	}
	if rows[0].VendorID != product.VendorID {
		t.Fatalf("commission booked for wrong vendor")
	}
}

func TestAdvanceSkippingStepRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Advance(context.Background(), detail.ID, enums.OrderStatusShipped,
		Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin})
	if err == nil {
		t.Fatal("expected invalid transition")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReturnDeliveredRestocks(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, box := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)
	customerID := uuid.New()

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	admin := Actor{UserID: uuid.New(), Role: enums.MemberRoleAdmin}
	for _, target := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		if detail, err = svc.Advance(context.Background(), detail.ID, target, admin); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}

	returned, err := svc.Return(context.Background(), detail.ID, Actor{UserID: customerID, Role: enums.MemberRoleCustomer})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != enums.OrderStatusReturned {
		t.Fatalf("expected returned, got %s", returned.Status)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", stored.Stock)
	}
	if !box.has(enums.EventOrderReturned) {
		t.Fatal("expected order_returned event")
	}
}

func TestCouponAppliedOnCreate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)

	coupon := models.Coupon{
		ID:           uuid.New(),
		Code:         "SAVE10",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(10),
		Active:       true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		CouponCode:      "SAVE10",
		PaymentMethod:   enums.PaymentMethodBank,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !detail.Discount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected discount 100, got %s", detail.Discount)
	}
	if !detail.Total.Equal(decimal.NewFromInt(1130)) {
		t.Fatalf("expected total 1130, got %s", detail.Total)
	}
	if detail.CouponCode == nil || *detail.CouponCode != "SAVE10" {
		t.Fatal("expected coupon code recorded on order")
	}
}

func TestUnknownCouponWarnsOnCreate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	product := seedProduct(t, db, 500, 5)

	detail, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID:      uuid.New(),
		Items:           []CreateItemInput{{ProductID: product.ID, Quantity: 2}},
		CouponCode:      "BOGUS",
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !detail.Discount.IsZero() {
		t.Fatalf("expected zero discount, got %s", detail.Discount)
	}
	if len(detail.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", detail.Warnings)
	}
	if detail.CouponCode != nil {
		t.Fatal("bogus coupon must not be recorded")
	}
}
