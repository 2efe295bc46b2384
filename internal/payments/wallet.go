package payments

import (
	"context"
	"strconv"
	"strings"

	pkgerrors "github.com/hatbazar/marketplace-backend/pkg/errors"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
	"github.com/hatbazar/marketplace-backend/pkg/walletpay"
)

type walletGateway struct {
	client *walletpay.Client
}

// NewWalletGateway adapts the wallet provider to the Gateway surface.
func NewWalletGateway(client *walletpay.Client) Gateway {
	return &walletGateway{client: client}
}

func (g *walletGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodWallet
}

func (g *walletGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	return &InitiateResult{
		Gateway:     enums.PaymentMethodWallet,
		RedirectURL: g.client.CheckoutEndpoint(),
		Fields: map[string]string{
			"amount":              strconv.FormatInt(walletpay.ToMinorUnits(order.Total), 10),
			"purchase_order_id":   order.OrderNumber,
			"purchase_order_name": order.OrderNumber,
		},
	}, nil
}

func (g *walletGateway) Verify(ctx context.Context, order *models.Order, input VerifyInput) (*Receipt, error) {
	if strings.TrimSpace(input.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet token is required")
	}

	result, err := g.client.Verify(ctx, input.Token, order.Total)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "wallet verification unavailable")
	}

	receipt := &Receipt{
		TransactionID: result.TransactionID,
		Amount:        result.Amount,
	}
	switch {
	case !walletStateSettled(result.State):
		receipt.Reason = "wallet payment not completed: " + result.State
	case !result.Amount.Equal(order.Total):
		receipt.Reason = "wallet amount does not match order total"
	default:
		receipt.Succeeded = true
	}
	return receipt, nil
}

// The provider spells the settled state "Completed" in its callbacks and
// "COMPLETED" in its lookup API, so matching is case-insensitive.
func walletStateSettled(state string) bool {
	return strings.ToUpper(strings.TrimSpace(state)) == "COMPLETED"
}
