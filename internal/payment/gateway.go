// Package payment charges credit cards through the upstream payment API.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrCardDeclined means the gateway refused the card without recording a
	// transaction.
	ErrCardDeclined = errors.New("card declined")
	// ErrGatewayUnavailable covers transport failures, timeouts and malformed
	// answers.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Gateway charges a card for an amount. A returned transaction may carry
// Success=false; that is a decline, not an error.
type Gateway interface {
	Charge(ctx context.Context, card domain.CreditCard, amount decimal.Decimal) (*domain.Transaction, error)
}

// FailedTransaction is recorded locally when the gateway produced no
// transaction of its own.
func FailedTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:            newTransactionID(),
		Success:       false,
		AmountCharged: decimal.Zero,
	}
}

func newTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FormatCardNumber splits digits in groups of four separated by spaces.
func FormatCardNumber(number string) string {
	var b strings.Builder
	for i, r := range number {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
