package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Weight      *int            `json:"weight,omitempty"`
	Image       string          `json:"image"`
	InStock     bool            `json:"in_stock"`
	Description string          `json:"description"`
}
