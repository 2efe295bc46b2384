package walletpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
)

// The wallet provider denominates every amount in minor units (paisa).
// Conversion to and from rupees happens here and nowhere else.
var minorUnitsPerRupee = decimal.NewFromInt(100)

var (
	errBaseURLRequired = errors.New("wallet base url is required")
	errSecretRequired  = errors.New("wallet secret key is required")
)

// VerifyRequest is the provider's verification payload.
type VerifyRequest struct {
	Token       string `json:"token"`
	AmountPaisa int64  `json:"amount"`
}

// VerifyResult is the provider's verification response, converted back
// to major units.
type VerifyResult struct {
	TransactionID string
	Amount        decimal.Decimal
	State         string
}

type verifyResponse struct {
	IDX         string `json:"idx"`
	AmountPaisa int64  `json:"amount"`
	State       struct {
		Name string `json:"name"`
	} `json:"state"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Client talks to the wallet provider's server-side verification API.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logg      *logger.Logger
}

// NewClient initializes the wallet client with the configured secrets.
func NewClient(cfg config.WalletGatewayConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
		logg:      logg,
	}, nil
}

// CheckoutEndpoint is where the shopper is redirected to complete payment.
func (c *Client) CheckoutEndpoint() string {
	return c.baseURL + "/payment/initiate/"
}

// ToMinorUnits converts a rupee amount to the paisa integer the provider expects.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitsPerRupee).Round(0).IntPart()
}

// FromMinorUnits converts a paisa integer back to rupees.
func FromMinorUnits(paisa int64) decimal.Decimal {
	return decimal.NewFromInt(paisa).Div(minorUnitsPerRupee)
}

// Verify confirms a wallet payment token against the provider. The amount
// is the order total in rupees; the wire call carries paisa.
func (c *Client) Verify(ctx context.Context, token string, amount decimal.Decimal) (*VerifyResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("wallet token is required")
	}

	body, err := json.Marshal(VerifyRequest{
		Token:       token,
		AmountPaisa: ToMinorUnits(amount),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment/verify/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling wallet provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading wallet response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logg.Warn(c.logg.WithField(ctx, "status", resp.StatusCode), "wallet provider rejected verification")
		var detail errorResponse
		_ = json.Unmarshal(raw, &detail)
		if detail.Detail != "" {
			return nil, fmt.Errorf("wallet provider rejected verification: %s", detail.Detail)
		}
		return nil, fmt.Errorf("wallet provider returned status %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding wallet response: %w", err)
	}

	return &VerifyResult{
		TransactionID: payload.IDX,
		Amount:        FromMinorUnits(payload.AmountPaisa),
		State:         payload.State.Name,
	}, nil
}
