package dynamodb

import (
	"fmt"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	orderSK        = "METADATA"
	counterPK      = "COUNTER"
	counterSK      = "ORDER"
	catalogPK      = "CATALOG"
	catalogSK      = "CURRENT"
	productSKFmt   = "PRODUCT#%010d"
	transactionSKP = "TXN#"
)

func orderPK(id int) string {
	return fmt.Sprintf("ORDER#%d", id)
}

func catalogEpochPK(epoch string) string {
	return "CATALOG#" + epoch
}

func productSK(id int) string {
	return fmt.Sprintf(productSKFmt, id)
}

func transactionSK(t time.Time, txID string) string {
	return fmt.Sprintf("%s%019d#%s", transactionSKP, t.UnixNano(), txID)
}

// Prices are kept as strings so no precision is lost through the number
// attribute type.

type productRecord struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ID          int    `dynamodbav:"id"`
	Name        string `dynamodbav:"name"`
	Price       string `dynamodbav:"price"`
	Weight      *int   `dynamodbav:"weight,omitempty"`
	Image       string `dynamodbav:"image"`
	InStock     bool   `dynamodbav:"in_stock"`
	Description string `dynamodbav:"description"`
}

type lineItemRecord struct {
	ProductID   int    `dynamodbav:"product_id"`
	Name        string `dynamodbav:"name"`
	Price       string `dynamodbav:"price"`
	Weight      *int   `dynamodbav:"weight,omitempty"`
	Image       string `dynamodbav:"image"`
	InStock     bool   `dynamodbav:"in_stock"`
	Description string `dynamodbav:"description"`
	Quantity    int    `dynamodbav:"quantity"`
}

type shippingRecord struct {
	Country    string `dynamodbav:"country"`
	Address    string `dynamodbav:"address"`
	PostalCode string `dynamodbav:"postal_code"`
	City       string `dynamodbav:"city"`
	Province   string `dynamodbav:"province"`
}

type creditCardRecord struct {
	Name            string `dynamodbav:"name"`
	Number          string `dynamodbav:"number"`
	ExpirationYear  int    `dynamodbav:"expiration_year"`
	ExpirationMonth int    `dynamodbav:"expiration_month"`
	CVV             string `dynamodbav:"cvv"`
}

type transactionRecord struct {
	PK            string `dynamodbav:"PK,omitempty"`
	SK            string `dynamodbav:"SK,omitempty"`
	ID            string `dynamodbav:"id"`
	Success       bool   `dynamodbav:"success"`
	AmountCharged string `dynamodbav:"amount_charged"`
}

type orderRecord struct {
	PK                  string             `dynamodbav:"PK"`
	SK                  string             `dynamodbav:"SK"`
	ID                  int                `dynamodbav:"order_id"`
	Item                lineItemRecord     `dynamodbav:"item"`
	Email               *string            `dynamodbav:"email,omitempty"`
	ShippingInformation *shippingRecord    `dynamodbav:"shipping_information,omitempty"`
	CreditCard          *creditCardRecord  `dynamodbav:"credit_card,omitempty"`
	Transaction         *transactionRecord `dynamodbav:"transaction,omitempty"`
	Paid                bool               `dynamodbav:"paid"`
	CreatedAt           time.Time          `dynamodbav:"created_at"`
	UpdatedAt           time.Time          `dynamodbav:"updated_at"`
}

func newProductRecord(epoch string, p domain.Product) productRecord {
	return productRecord{
		PK:          catalogEpochPK(epoch),
		SK:          productSK(p.ID),
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.String(),
		Weight:      p.Weight,
		Image:       p.Image,
		InStock:     p.InStock,
		Description: p.Description,
	}
}

func (r productRecord) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price of product %d: %w", r.ID, err)
	}
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       price,
		Weight:      r.Weight,
		Image:       r.Image,
		InStock:     r.InStock,
		Description: r.Description,
	}, nil
}

func newOrderRecord(o *domain.Order) orderRecord {
	p := o.Item.Product
	r := orderRecord{
		PK: orderPK(o.ID),
		SK: orderSK,
		ID: o.ID,
		Item: lineItemRecord{
			ProductID:   p.ID,
			Name:        p.Name,
			Price:       p.Price.String(),
			Weight:      p.Weight,
			Image:       p.Image,
			InStock:     p.InStock,
			Description: p.Description,
			Quantity:    o.Item.Quantity,
		},
		Email:     o.Email,
		Paid:      o.Paid,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if si := o.ShippingInformation; si != nil {
		r.ShippingInformation = &shippingRecord{
			Country:    si.Country,
			Address:    si.Address,
			PostalCode: si.PostalCode,
			City:       si.City,
			Province:   si.Province,
		}
	}
	if cc := o.CreditCard; cc != nil {
		r.CreditCard = &creditCardRecord{
			Name:            cc.Name,
			Number:          cc.Number,
			ExpirationYear:  cc.ExpirationYear,
			ExpirationMonth: cc.ExpirationMonth,
			CVV:             cc.CVV,
		}
	}
	if t := o.Transaction; t != nil {
		r.Transaction = &transactionRecord{
			ID:            t.ID,
			Success:       t.Success,
			AmountCharged: t.AmountCharged.String(),
		}
	}
	return r
}

func (r transactionRecord) toDomain() (domain.Transaction, error) {
	amount, err := decimal.NewFromString(r.AmountCharged)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse amount of transaction %s: %w", r.ID, err)
	}
	return domain.Transaction{ID: r.ID, Success: r.Success, AmountCharged: amount}, nil
}

func (r orderRecord) toDomain() (*domain.Order, error) {
	price, err := decimal.NewFromString(r.Item.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price of order %d: %w", r.ID, err)
	}
	o := &domain.Order{
		ID: r.ID,
		Item: domain.LineItem{
			Product: domain.Product{
				ID:          r.Item.ProductID,
				Name:        r.Item.Name,
				Price:       price,
				Weight:      r.Item.Weight,
				Image:       r.Item.Image,
				InStock:     r.Item.InStock,
				Description: r.Item.Description,
			},
			Quantity: r.Item.Quantity,
		},
		Email:     r.Email,
		Paid:      r.Paid,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if si := r.ShippingInformation; si != nil {
		o.ShippingInformation = &domain.ShippingInformation{
			Country:    si.Country,
			Address:    si.Address,
			PostalCode: si.PostalCode,
			City:       si.City,
			Province:   si.Province,
		}
	}
	if cc := r.CreditCard; cc != nil {
		o.CreditCard = &domain.CreditCard{
			Name:            cc.Name,
			Number:          cc.Number,
			ExpirationYear:  cc.ExpirationYear,
			ExpirationMonth: cc.ExpirationMonth,
			CVV:             cc.CVV,
		}
	}
	if r.Transaction != nil {
		t, err := r.Transaction.toDomain()
		if err != nil {
			return nil, err
		}
		o.Transaction = &t
	}
	return o, nil
}
