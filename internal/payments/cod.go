package payments

import (
	"context"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"
)

type codGateway struct{}

// NewCODGateway handles cash-on-delivery orders. There is nothing to
// redirect to and nothing to verify upfront: cash settles when the
// order is marked delivered.
func NewCODGateway() Gateway {
	return codGateway{}
}

func (codGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodCOD
}

func (codGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	return &InitiateResult{Gateway: enums.PaymentMethodCOD}, nil
}

func (codGateway) Verify(ctx context.Context, order *models.Order, input VerifyInput) (*Receipt, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash orders settle on delivery")
}
