package commissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:commissions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE commissions (
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
CREATE UNIQUE INDEX ux_commissions_order_item ON commissions (order_item_id);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func paidOrder(t *testing.T) *models.Order {
	t.Helper()
	orderID := uuid.New()
	vendorA := uuid.New()
	vendorB := uuid.New()
	return &models.Order{
		ID: orderID,
		Items: []models.OrderItem{
			{
				ID:        uuid.New(),
				OrderID:   orderID,
				ProductID: uuid.New(),
				VendorID:  vendorA,
				Quantity:  2,
				UnitPrice: decimal.NewFromInt(500),
				LineTotal: decimal.NewFromInt(1000),
			},
			{
				ID:        uuid.New(),
				OrderID:   orderID,
				ProductID: uuid.New(),
				VendorID:  vendorB,
				Quantity:  1,
				UnitPrice: decimal.NewFromInt(250),
				LineTotal: decimal.NewFromInt(250),
			},
		},
	}
}

func TestBookOrderItems(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order := paidOrder(t)
	rate := decimal.RequireFromString("0.10")

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.BookOrderItems(ctx, tx, order, rate)
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	var rows []models.Commission
	if err := db.Order("gross_amount DESC").Find(&rows).Error; err != nil {
		t.Fatalf("load commissions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(rows))
	}

	if !rows[0].CommissionAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected commission 100, got %s", rows[0].CommissionAmount)
	}
	if !rows[0].NetAmount.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("expected net 900, got %s", rows[0].NetAmount)
	}
	if !rows[1].CommissionAmount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected commission 25, got %s", rows[1].CommissionAmount)
	}
}

func TestBookOrderItemsIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order := paidOrder(t)
	rate := decimal.RequireFromString("0.10")

	for i := 0; i < 3; i++ {
		err = db.Transaction(func(tx *gorm.DB) error {
			return svc.BookOrderItems(ctx, tx, order, rate)
		})
		if err != nil {
			t.Fatalf("book attempt %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&models.Commission{}).Count(&count).Error; err != nil {
		t.Fatalf("count commissions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 commissions after replays, got %d", count)
	}
}

func TestVendorEarnings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	order := paidOrder(t)
	rate := decimal.RequireFromString("0.10")
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.BookOrderItems(ctx, tx, order, rate)
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Withdrawable earnings are the commission share, 10% of 1000 gross.
	earned, err := svc.VendorEarnings(ctx, order.Items[0].VendorID)
	if err != nil {
		t.Fatalf("vendor earnings: %v", err)
	}
	if !earned.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected earnings 100, got %s", earned)
	}

	other, err := svc.VendorEarnings(ctx, uuid.New())
	if err != nil {
		t.Fatalf("unknown vendor earnings: %v", err)
	}
	if !other.IsZero() {
		t.Fatalf("expected zero earnings, got %s", other)
	}
}
