package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

// Repository defines persistence operations for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GuardedInsert(ctx context.Context, request *models.PayoutRequest) (bool, error)
	SumAmountByVendor(ctx context.Context, vendorID uuid.UUID, statuses ...enums.PayoutStatus) (decimal.Decimal, error)
	ResolveIfPending(ctx context.Context, id uuid.UUID, status enums.PayoutStatus, resolvedBy uuid.UUID, resolvedAt time.Time) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.PayoutRequest, error)
	ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.PayoutRequest, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GuardedInsert writes the payout request only when the vendor's accrued
// commission earnings cover the amount after subtracting every completed
// AND pending payout. The balance check and the insert are one statement,
// so two concurrent requests cannot both pass the check.
func (r *repository) GuardedInsert(ctx context.Context, request *models.PayoutRequest) (bool, error) {
	if request == nil {
		return false, errors.New("payout request required")
	}
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).Exec(`
INSERT INTO payout_requests (id, vendor_id, amount, status, note, requested_at, updated_at)
SELECT ?, ?, ?, ?, ?, ?, ?
WHERE CAST(? AS NUMERIC) <= (
  (SELECT COALESCE(SUM(commission_amount), 0) FROM commissions WHERE vendor_id = ?)
  - (SELECT COALESCE(SUM(amount), 0) FROM payout_requests WHERE vendor_id = ? AND status IN (?, ?))
)`,
		request.ID, request.VendorID, request.Amount, enums.PayoutStatusPending, request.Note, now, now,
		request.Amount,
		request.VendorID,
		request.VendorID, enums.PayoutStatusPending, enums.PayoutStatusCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	request.Status = enums.PayoutStatusPending
	request.RequestedAt = now
	return true, nil
}

func (r *repository) SumAmountByVendor(ctx context.Context, vendorID uuid.UUID, statuses ...enums.PayoutStatus) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Select("CAST(COALESCE(SUM(amount), 0) AS TEXT)").
		Where("vendor_id = ? AND status IN ?", vendorID, statuses).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// ResolveIfPending flips a pending request to its terminal status. The
// status predicate makes concurrent resolutions race-safe: only one wins.
func (r *repository) ResolveIfPending(ctx context.Context, id uuid.UUID, status enums.PayoutStatus, resolvedBy uuid.UUID, resolvedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ?", id, enums.PayoutStatusPending).
		Updates(map[string]any{
			"status":      status,
			"resolved_by": resolvedBy,
			"resolved_at": resolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var request models.PayoutRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.PayoutRequest, error) {
	var rows []models.PayoutRequest
	q := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("requested_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) ListByStatus(ctx context.Context, status enums.PayoutStatus, limit int) ([]models.PayoutRequest, error) {
	var rows []models.PayoutRequest
	q := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("requested_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}
