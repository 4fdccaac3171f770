package service

import (
	"context"
	"errors"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/catalog"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"go.uber.org/zap"
)

type CatalogService struct {
	source   catalog.Source
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewCatalogService(source catalog.Source, products repository.ProductRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		source:   source,
		products: products,
		logger:   logger,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListProducts(ctx)
}

// Refresh replaces the stored catalog with the upstream feed and returns the
// number of products kept. Products with a non-positive price or weight and
// repeated ids are skipped. On error the previous catalog stays in place.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	fetched, err := s.source.FetchProducts(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[int]bool, len(fetched))
	products := make([]domain.Product, 0, len(fetched))
	for _, p := range fetched {
		switch {
		case seen[p.ID]:
			s.logger.Warn("Skipping duplicate product", zap.Int("product_id", p.ID))
			continue
		case !p.Price.IsPositive():
			s.logger.Warn("Skipping product without a positive price",
				zap.Int("product_id", p.ID),
				zap.String("price", p.Price.String()))
			continue
		case p.Weight != nil && *p.Weight <= 0:
			s.logger.Warn("Skipping product without a positive weight",
				zap.Int("product_id", p.ID),
				zap.Int("weight", *p.Weight))
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}

	if err := s.products.ReplaceProducts(ctx, products); err != nil {
		if !errors.Is(err, repository.ErrCatalogCleanup) {
			return 0, err
		}
		s.logger.Warn("Stale catalog data left behind", zap.Error(err))
	}

	s.logger.Info("Catalog refreshed", zap.Int("products", len(products)))
	return len(products), nil
}

// Run refreshes the catalog every interval until ctx is done.
func (s *CatalogService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("Catalog refresh failed, keeping previous catalog", zap.Error(err))
			}
		}
	}
}
