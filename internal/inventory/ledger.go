package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
)

// Ledger mutates product stock with guarded updates so concurrent orders
// can never drive stock negative. All mutations run inside the caller's
// transaction.
type Ledger struct{}

// NewLedger builds the inventory ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements stock for one product. The WHERE clause carries the
// availability check so the decrement and the check are a single atomic
// statement; zero affected rows means another order got there first.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ? AND status = ?", productID, qty, enums.ProductStatusActive).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for product %s", productID)).
			WithDetails(map[string]any{"product_id": productID.String(), "requested": qty})
	}

	return tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock = 0 AND status = ?", productID, enums.ProductStatusActive).
		Update("status", enums.ProductStatusOutOfStock).Error
}

// Release returns previously reserved stock, reactivating products that
// sold out.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("product %s not found", productID))
	}

	return tx.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock > 0 AND status = ?", productID, enums.ProductStatusOutOfStock).
		Update("status", enums.ProductStatusActive).Error
}
