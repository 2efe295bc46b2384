package commissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
)

// Repository defines persistence operations for the commission ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, commission *models.Commission) error
	ExistsForItem(ctx context.Context, orderItemID uuid.UUID) (bool, error)
	SumEarnedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Commission, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, commission *models.Commission) error {
	if commission == nil {
		return errors.New("commission required")
	}
	if commission.ID == uuid.Nil {
		commission.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *repository) ExistsForItem(ctx context.Context, orderItemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("order_item_id = ?", orderItemID).
		Count(&count).Error
	return count > 0, err
}

// SumEarnedByVendor totals commission_amount, the vendor's withdrawable
// share. net_amount is the marketplace remainder and never enters the
// payout balance.
func (r *repository) SumEarnedByVendor(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).Model(&models.Commission{}).
		Select("CAST(COALESCE(SUM(commission_amount), 0) AS TEXT)").
		Where("vendor_id = ?", vendorID).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Commission, error) {
	var rows []models.Commission
	q := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
