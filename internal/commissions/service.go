package commissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/hatbazar/marketplace-backend/pkg/db"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
)

// Service books vendor commissions when an order settles and reports the
// accrued balance.
type Service interface {
	BookOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, rate decimal.Decimal) error
	VendorEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// NewService builds the commission booking service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	return &service{repo: repo}, nil
}

// BookOrderItems writes one commission row per order item inside the
// caller's transaction. Re-running for an already-booked item is a no-op:
// the existence check catches replays within this process, the unique
// index on order_item_id catches concurrent ones.
func (s *service) BookOrderItems(ctx context.Context, tx *gorm.DB, order *models.Order, rate decimal.Decimal) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if order == nil {
		return fmt.Errorf("order required")
	}

	repo := s.repo.WithTx(tx)
	for _, item := range order.Items {
		exists, err := repo.ExistsForItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		gross := item.LineTotal
		commission := gross.Mul(rate).Round(2)
		row := models.Commission{
			OrderID:          order.ID,
			OrderItemID:      item.ID,
			VendorID:         item.VendorID,
			GrossAmount:      gross,
			CommissionRate:   rate,
			CommissionAmount: commission,
			NetAmount:        gross.Sub(commission),
		}
		if err := repo.Insert(ctx, &row); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_commissions_order_item") {
				continue
			}
			return err
		}
	}
	return nil
}

// VendorEarnings sums the vendor's withdrawable commission share across
// all booked commissions.
func (s *service) VendorEarnings(ctx context.Context, vendorID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.SumEarnedByVendor(ctx, vendorID)
}
