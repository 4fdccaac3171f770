package domain

import "errors"

var (
	ErrInvalidQuantity            = errors.New("quantity is out of range")
	ErrInvalidCreditCard          = errors.New("invalid credit card details")
	ErrOutOfInventory             = errors.New("product is out of inventory")
	ErrMissingShippingInformation = errors.New("shipping information is required before charging a card")
	ErrAlreadyPaid                = errors.New("order is already paid")
	ErrUnknownProvince            = errors.New("unknown province")
)
