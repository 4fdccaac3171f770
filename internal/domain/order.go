package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity a single order may carry.
const MaxQuantity = math.MaxInt32

type OrderState string

const (
	OrderStateCreated     OrderState = "CREATED"
	OrderStateShippingSet OrderState = "SHIPPING_SET"
	OrderStatePaid        OrderState = "PAID"
)

// LineItem is the single (product, quantity) pair of an order. The product is
// a snapshot taken when the order was created.
type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type ShippingInformation struct {
	Country    string `json:"country"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Province   string `json:"province"`
}

// CreditCard holds the full card number as digits only. It never leaves the
// service except towards the payment gateway.
type CreditCard struct {
	Name            string `json:"name"`
	Number          string `json:"number"`
	ExpirationYear  int    `json:"expiration_year"`
	ExpirationMonth int    `json:"expiration_month"`
	CVV             string `json:"cvv"`
}

func (c CreditCard) FirstDigits() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[:4]
}

func (c CreditCard) LastDigits() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

type Transaction struct {
	ID            string          `json:"id"`
	Success       bool            `json:"success"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
}

type Order struct {
	ID                  int                  `json:"id"`
	Item                LineItem             `json:"item"`
	Email               *string              `json:"email,omitempty"`
	ShippingInformation *ShippingInformation `json:"shipping_information,omitempty"`
	CreditCard          *CreditCard          `json:"credit_card,omitempty"`
	Transaction         *Transaction         `json:"transaction,omitempty"`
	Paid                bool                 `json:"paid"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// State derives the lifecycle position from the aggregate. A declined
// attempt leaves the order in OrderStateShippingSet.
func (o *Order) State() OrderState {
	switch {
	case o.Paid:
		return OrderStatePaid
	case o.ShippingInformation != nil:
		return OrderStateShippingSet
	default:
		return OrderStateCreated
	}
}

type CreateOrderRequest struct {
	ProductID int `json:"id"`
	Quantity  int `json:"quantity"`
}

type ShippingRequest struct {
	Email               string              `json:"email"`
	ShippingInformation ShippingInformation `json:"shipping_information"`
}
