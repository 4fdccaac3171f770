package payment

import (
	"context"
	"sync"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

// DeclinedCardNumber is refused by the simulator.
const DeclinedCardNumber = "4000000000000002"

// Simulator stands in for the payment API when none is configured. It
// accepts every card except DeclinedCardNumber.
type Simulator struct {
	mu      sync.Mutex
	charges []domain.Transaction
}

var _ Gateway = (*Simulator)(nil)

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Charge(ctx context.Context, card domain.CreditCard, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if card.Number == DeclinedCardNumber {
		return nil, ErrCardDeclined
	}

	t := domain.Transaction{
		ID:            newTransactionID(),
		Success:       true,
		AmountCharged: amount,
	}
	s.mu.Lock()
	s.charges = append(s.charges, t)
	s.mu.Unlock()
	return &t, nil
}

// Charges returns the successful charges made so far.
func (s *Simulator) Charges() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transaction(nil), s.charges...)
}
