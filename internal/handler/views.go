package handler

import (
	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/pricing"
	"github.com/shopspring/decimal"
)

// emptyObject renders as {} for sub-entities that are not set yet.
var emptyObject = struct{}{}

type ProductView struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	InStock     bool    `json:"in_stock"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Weight      *int    `json:"weight"`
	Image       string  `json:"image"`
}

type CreditCardView struct {
	Name            string `json:"name"`
	FirstDigits     string `json:"first_digits"`
	LastDigits      string `json:"last_digits"`
	ExpirationYear  int    `json:"expiration_year"`
	ExpirationMonth int    `json:"expiration_month"`
}

type TransactionView struct {
	ID            string  `json:"id"`
	Success       bool    `json:"success"`
	AmountCharged float64 `json:"amount_charged"`
}

type LineItemView struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

type OrderView struct {
	ID                  int          `json:"id"`
	TotalPrice          float64      `json:"total_price"`
	TotalPriceTax       *float64     `json:"total_price_tax"`
	Email               *string      `json:"email"`
	CreditCard          any          `json:"credit_card"`
	ShippingInformation any          `json:"shipping_information"`
	Transaction         any          `json:"transaction"`
	Paid                bool         `json:"paid"`
	Product             LineItemView `json:"product"`
	ShippingPrice       *float64     `json:"shipping_price"`
}

func NewProductView(p domain.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		InStock:     p.InStock,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Weight:      p.Weight,
		Image:       p.Image,
	}
}

// NewOrderView projects an order for clients. The full card number is never
// included.
func NewOrderView(o *domain.Order) OrderView {
	// An unknown stored province leaves total_price_tax null.
	quote, _ := pricing.QuoteOrder(o)

	v := OrderView{
		ID:                  o.ID,
		TotalPrice:          quote.TotalPrice.InexactFloat64(),
		TotalPriceTax:       floatOrNil(quote.TotalPriceTax),
		Email:               o.Email,
		CreditCard:          emptyObject,
		ShippingInformation: emptyObject,
		Transaction:         emptyObject,
		Paid:                o.Paid,
		Product: LineItemView{
			ID:       o.Item.Product.ID,
			Quantity: o.Item.Quantity,
		},
		ShippingPrice: floatOrNil(quote.ShippingPrice),
	}
	if cc := o.CreditCard; cc != nil {
		v.CreditCard = CreditCardView{
			Name:            cc.Name,
			FirstDigits:     cc.FirstDigits(),
			LastDigits:      cc.LastDigits(),
			ExpirationYear:  cc.ExpirationYear,
			ExpirationMonth: cc.ExpirationMonth,
		}
	}
	if si := o.ShippingInformation; si != nil {
		v.ShippingInformation = *si
	}
	if t := o.Transaction; t != nil {
		v.Transaction = TransactionView{
			ID:            t.ID,
			Success:       t.Success,
			AmountCharged: t.AmountCharged.InexactFloat64(),
		}
	}
	return v
}

func floatOrNil(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
