// Package repository declares the storage capabilities the checkout service
// needs. Engines live in the sqlite, bolt and dynamodb subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderPaid is returned by SaveOrder when the stored order is already
	// paid. Paid orders are terminal.
	ErrOrderPaid = errors.New("stored order is already paid")
	// ErrCatalogCleanup is returned by ReplaceProducts when the new catalog is
	// live but stale catalog data could not be removed.
	ErrCatalogCleanup = errors.New("catalog replaced, stale data cleanup failed")
)

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int) (domain.Product, error)
	// ReplaceProducts swaps the whole catalog. Readers observe either the
	// previous catalog or the new one, never a partial or empty state.
	ReplaceProducts(ctx context.Context, products []domain.Product) error
}

type OrderRepository interface {
	// CreateOrder persists a new order and assigns order.ID.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int) (*domain.Order, error)
	// SaveOrder writes the whole aggregate (shipping, card, transaction, paid
	// flag) as one atomic unit.
	SaveOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id int) error
}

type Store interface {
	ProductRepository
	OrderRepository
	Ping(ctx context.Context) error
	Close() error
}
