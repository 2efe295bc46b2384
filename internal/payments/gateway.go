package payments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/db/models"
	"github.com/hatbazar/marketplace-backend/pkg/enums"
)

// VerifyInput carries the provider-specific proof of payment from the
// redirect callback. Wallet payments send a token, bank payments a
// reference id.
type VerifyInput struct {
	Token       string
	ReferenceID string
}

// Receipt is the normalized outcome of a provider verification. A
// receipt with Succeeded false is a definitive rejection, not a
// transport failure.
type Receipt struct {
	TransactionID string
	Amount        decimal.Decimal
	Succeeded     bool
	Reason        string
}

// InitiateResult tells the client where to send the shopper to pay.
// Cash orders carry no redirect.
type InitiateResult struct {
	Gateway     enums.PaymentMethod `json:"gateway"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	Fields      map[string]string   `json:"fields,omitempty"`
}

// Gateway adapts one payment rail to a common initiate/verify surface.
type Gateway interface {
	Method() enums.PaymentMethod
	Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error)
	Verify(ctx context.Context, order *models.Order, input VerifyInput) (*Receipt, error)
}
