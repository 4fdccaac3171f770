package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderState(t *testing.T) {
	o := &Order{}
	assert.Equal(t, OrderStateCreated, o.State())

	o.ShippingInformation = &ShippingInformation{Province: "QC"}
	assert.Equal(t, OrderStateShippingSet, o.State())

	o.Transaction = &Transaction{ID: "declined"}
	assert.Equal(t, OrderStateShippingSet, o.State())

	o.Paid = true
	assert.Equal(t, OrderStatePaid, o.State())
}

func TestCreditCardDigits(t *testing.T) {
	c := CreditCard{Number: "4000000000000002"}
	assert.Equal(t, "4000", c.FirstDigits())
	assert.Equal(t, "0002", c.LastDigits())

	short := CreditCard{Number: "42"}
	assert.Equal(t, "42", short.FirstDigits())
	assert.Equal(t, "42", short.LastDigits())
}
