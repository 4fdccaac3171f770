package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient posts charges to url. Each call is bounded by timeout; ratePerSec
// caps outbound calls, 0 disables the cap.
func NewClient(url string, timeout time.Duration, ratePerSec float64, logger *zap.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
		burst = max(1, int(ratePerSec))
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

type chargeCard struct {
	Name            string `json:"name"`
	Number          string `json:"number"`
	ExpirationYear  int    `json:"expiration_year"`
	CVV             string `json:"cvv"`
	ExpirationMonth int    `json:"expiration_month"`
}

type chargeRequest struct {
	CreditCard    chargeCard  `json:"credit_card"`
	AmountCharged json.Number `json:"amount_charged"`
}

type chargeResponse struct {
	Transaction *struct {
		ID            string          `json:"id"`
		Success       bool            `json:"success"`
		AmountCharged decimal.Decimal `json:"amount_charged"`
	} `json:"transaction"`
	Errors map[string]json.RawMessage `json:"errors"`
}

func (c *Client) Charge(ctx context.Context, card domain.CreditCard, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	body, err := json.Marshal(chargeRequest{
		CreditCard: chargeCard{
			Name:            card.Name,
			Number:          FormatCardNumber(card.Number),
			ExpirationYear:  card.ExpirationYear,
			CVV:             card.CVV,
			ExpirationMonth: card.ExpirationMonth,
		},
		AmountCharged: json.Number(amount.StringFixed(2)),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	var out chargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrGatewayUnavailable, resp.StatusCode, err)
	}

	if out.Transaction != nil {
		return &domain.Transaction{
			ID:            out.Transaction.ID,
			Success:       out.Transaction.Success,
			AmountCharged: out.Transaction.AmountCharged,
		}, nil
	}

	if _, ok := out.Errors["credit_card"]; ok && resp.StatusCode < http.StatusInternalServerError {
		c.logger.Info("Card refused by gateway", zap.Int("status", resp.StatusCode))
		return nil, ErrCardDeclined
	}
	return nil, fmt.Errorf("%w: status %d without transaction", ErrGatewayUnavailable, resp.StatusCode)
}
