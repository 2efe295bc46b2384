package payments

import (
	"context"
	"strings"

	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"

	"github.com/hatbazar/marketplace-backend/pkg/bankpay"
	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

type bankGateway struct {
	client *bankpay.Client
}

// NewBankGateway adapts the bank provider to the Gateway surface.
func NewBankGateway(client *bankpay.Client) Gateway {
	return &bankGateway{client: client}
}

func (g *bankGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodBank
}

func (g *bankGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	// The bank form wants major units.
	amount := order.Total.StringFixed(2)
	return &InitiateResult{
		Gateway:     enums.PaymentMethodBank,
		RedirectURL: g.client.FormEndpoint(),
		Fields: map[string]string{
			"scd":  g.client.MerchantCode(),
			"pid":  order.OrderNumber,
			"amt":  amount,
			"tAmt": amount,
		},
	}, nil
}

func (g *bankGateway) Verify(ctx context.Context, order *models.Order, input VerifyInput) (*Receipt, error) {
	if strings.TrimSpace(input.ReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank reference id is required")
	}

	result, err := g.client.Verify(ctx, input.ReferenceID, order.OrderNumber, order.Total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "bank verification unavailable")
	}

	receipt := &Receipt{
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
	}
	switch {
	case !bankStatusSettled(result.Status):
		receipt.Reason = "bank payment not completed: " + result.Status
	case !result.Amount.Equal(order.Total):
		receipt.Reason = "bank amount does not match order total"
	default:
		receipt.Succeeded = true
	}
	return receipt, nil
}

func bankStatusSettled(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETE", "COMPLETED", "SUCCESS":
		return true
	}
	return false
}
