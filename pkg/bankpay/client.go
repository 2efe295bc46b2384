package bankpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hatbazar/marketplace-backend/pkg/config"
	"github.com/hatbazar/marketplace-backend/pkg/logger"
)

var (
	errBaseURLRequired  = errors.New("bank base url is required")
	errMerchantRequired = errors.New("bank merchant code is required")
)

// VerifyResult is the bank provider's verification response. Amounts are
// already in major currency units on the wire.
type VerifyResult struct {
	TransactionID string
	Amount        decimal.Decimal
	Status        string
}

type verifyResponse struct {
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
}

// Client talks to the bank provider's transaction verification API.
type Client struct {
	baseURL      string
	merchantCode string
	http         *http.Client
	logg         *logger.Logger
}

// NewClient initializes the bank client with the configured merchant code.
func NewClient(cfg config.BankGatewayConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	merchantCode := strings.TrimSpace(cfg.MerchantCode)
	if merchantCode == "" {
		return nil, errMerchantRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:      baseURL,
		merchantCode: merchantCode,
		http:         &http.Client{Timeout: timeout},
		logg:         logg,
	}, nil
}

// FormEndpoint is where the shopper posts the payment form.
func (c *Client) FormEndpoint() string {
	return c.baseURL + "/epay/main"
}

// MerchantCode identifies us to the bank provider.
func (c *Client) MerchantCode() string {
	return c.merchantCode
}

// Verify confirms a bank redirect payment against the provider. The
// reference id comes from the redirect callback; orderNumber ties the
// verification to our order.
func (c *Client) Verify(ctx context.Context, referenceID, orderNumber string, amount decimal.Decimal) (*VerifyResult, error) {
	if strings.TrimSpace(referenceID) == "" {
		return nil, errors.New("bank reference id is required")
	}

	form := url.Values{}
	form.Set("scd", c.merchantCode)
	form.Set("rid", referenceID)
	form.Set("pid", orderNumber)
	form.Set("amt", amount.StringFixed(2))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/verify", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling bank provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading bank response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logg.Warn(c.logg.WithField(ctx, "status", resp.StatusCode), "bank provider rejected verification")
		return nil, fmt.Errorf("bank provider returned status %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding bank response: %w", err)
	}

	return &VerifyResult{
		TransactionID: payload.ReferenceID,
		Amount:        payload.Amount,
		Status:        payload.Status,
	}, nil
}
