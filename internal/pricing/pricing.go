// Package pricing computes order totals, provincial taxes and shipping cost.
package pricing

import (
	"fmt"
	"math"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

var taxRates = map[string]decimal.Decimal{
	"QC": decimal.RequireFromString("0.15"),
	"ON": decimal.RequireFromString("0.13"),
	"AB": decimal.RequireFromString("0.05"),
	"BC": decimal.RequireFromString("0.12"),
	"NS": decimal.RequireFromString("0.14"),
}

// TaxRate returns the sales tax rate of a 2-letter province code.
func TaxRate(province string) (decimal.Decimal, error) {
	rate, ok := taxRates[province]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnknownProvince, province)
	}
	return rate, nil
}

// totalWeight multiplies a unit weight by a quantity, saturating at
// math.MaxInt.
func totalWeight(grams, quantity int) int {
	if grams > 0 && quantity > math.MaxInt/grams {
		return math.MaxInt
	}
	return grams * quantity
}

// ShippingPrice maps a total weight in grams to a flat shipping price.
func ShippingPrice(grams int) decimal.Decimal {
	switch {
	case grams < 0:
		return decimal.Zero
	case grams < 500:
		return decimal.NewFromInt(5)
	case grams < 2000:
		return decimal.NewFromInt(10)
	default:
		return decimal.NewFromInt(25)
	}
}

func TotalPrice(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// TotalPriceTax adds the province tax on top of total, rounded to cents.
func TotalPriceTax(total decimal.Decimal, province string) (decimal.Decimal, error) {
	rate, err := TaxRate(province)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Add(total.Mul(rate)).Round(2), nil
}

// Quote is the priced view of an order line item.
type Quote struct {
	TotalPrice decimal.Decimal
	// TotalPriceTax is nil until shipping information is known.
	TotalPriceTax *decimal.Decimal
	// ShippingPrice is nil when the product has no weight.
	ShippingPrice *decimal.Decimal
}

// QuoteOrder prices the order line item. An unknown province on stored
// shipping information is reported as an error alongside a quote without tax.
func QuoteOrder(o *domain.Order) (Quote, error) {
	q := Quote{TotalPrice: TotalPrice(o.Item.Product.Price, o.Item.Quantity)}

	if w := o.Item.Product.Weight; w != nil {
		sp := ShippingPrice(totalWeight(*w, o.Item.Quantity))
		q.ShippingPrice = &sp
	}

	if o.ShippingInformation != nil {
		tax, err := TotalPriceTax(q.TotalPrice, o.ShippingInformation.Province)
		if err != nil {
			return q, err
		}
		q.TotalPriceTax = &tax
	}
	return q, nil
}

// AmountDue is what the gateway is asked to charge: total with tax plus
// shipping. Shipping information must be present.
func AmountDue(o *domain.Order) (decimal.Decimal, error) {
	if o.ShippingInformation == nil {
		return decimal.Zero, domain.ErrMissingShippingInformation
	}
	q, err := QuoteOrder(o)
	if err != nil {
		return decimal.Zero, err
	}
	amount := *q.TotalPriceTax
	if q.ShippingPrice != nil {
		amount = amount.Add(*q.ShippingPrice)
	}
	return amount, nil
}
