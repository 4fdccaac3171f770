package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCard = domain.CreditCard{
	Name:            "John Doe",
	Number:          "4242424242424242",
	ExpirationYear:  2030,
	ExpirationMonth: 9,
	CVV:             "123",
}

func TestFormatCardNumber(t *testing.T) {
	assert.Equal(t, "4242 4242 4242 4242", FormatCardNumber("4242424242424242"))
	assert.Equal(t, "4000 0000 0000 0002", FormatCardNumber(DeclinedCardNumber))
	assert.Equal(t, "123", FormatCardNumber("123"))
	assert.Equal(t, "", FormatCardNumber(""))
}

func TestFailedTransaction(t *testing.T) {
	tx := FailedTransaction()
	assert.Len(t, tx.ID, 32)
	assert.False(t, tx.Success)
	assert.True(t, tx.AmountCharged.IsZero())
	assert.NotEqual(t, tx.ID, FailedTransaction().ID)
}

func TestClientChargeSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"credit_card":{},"transaction":{"id":"wgEQ4zAUdYqpr21rt8A10dDrKbfcLmqi","success":true,"amount_charged":73.51}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, zap.NewNop())
	tx, err := c.Charge(context.Background(), testCard, decimal.RequireFromString("73.51"))
	require.NoError(t, err)
	assert.Equal(t, "wgEQ4zAUdYqpr21rt8A10dDrKbfcLmqi", tx.ID)
	assert.True(t, tx.Success)
	assert.True(t, tx.AmountCharged.Equal(decimal.RequireFromString("73.51")))

	card := got["credit_card"].(map[string]any)
	assert.Equal(t, "4242 4242 4242 4242", card["number"])
	assert.Equal(t, "John Doe", card["name"])
	assert.Equal(t, json.Number("2030"), card["expiration_year"])
	assert.Equal(t, json.Number("9"), card["expiration_month"])
	assert.Equal(t, json.Number("73.51"), got["amount_charged"])
}

func TestClientChargeDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":{"credit_card":{"code":"card-declined","name":"declined"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 0, zap.NewNop())
	_, err := c.Charge(context.Background(), testCard, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrCardDeclined)
}

func TestClientChargeGatewayFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		sleep   time.Duration
		timeout time.Duration
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"errors":{"credit_card":{}}}`},
		{name: "no transaction", status: http.StatusOK, body: `{}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "timeout", status: http.StatusOK, body: `{}`, sleep: 200 * time.Millisecond, timeout: 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.sleep > 0 {
					time.Sleep(tt.sleep)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			c := NewClient(srv.URL, timeout, 0, zap.NewNop())
			_, err := c.Charge(context.Background(), testCard, decimal.NewFromInt(10))
			assert.ErrorIs(t, err, ErrGatewayUnavailable)
			assert.False(t, errors.Is(err, ErrCardDeclined))
		})
	}
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", time.Second, 0.001, zap.NewNop())
	// consume the single burst token
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Charge(ctx, testCard, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestSimulator(t *testing.T) {
	s := NewSimulator()

	tx, err := s.Charge(context.Background(), testCard, decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.True(t, tx.Success)
	assert.Len(t, tx.ID, 32)
	assert.True(t, tx.AmountCharged.Equal(decimal.RequireFromString("12.50")))

	declined := testCard
	declined.Number = DeclinedCardNumber
	_, err = s.Charge(context.Background(), declined, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCardDeclined)

	assert.Len(t, s.Charges(), 1)
}
