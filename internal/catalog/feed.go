// Package catalog reads the upstream products feed.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/shopspring/decimal"
)

const maxFeedBytes = 8 << 20

// Source yields the full upstream catalog.
type Source interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

type FeedClient struct {
	url        string
	httpClient *http.Client
}

var _ Source = (*FeedClient)(nil)

func NewFeedClient(url string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type feedProduct struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Weight      *int            `json:"weight"`
	Image       string          `json:"image"`
	InStock     bool            `json:"in_stock"`
	Description string          `json:"description"`
}

type feed struct {
	Products *[]feedProduct `json:"products"`
}

func (c *FeedClient) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch products: unexpected status %d", resp.StatusCode)
	}

	var f feed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode products feed: %w", err)
	}
	if f.Products == nil {
		return nil, fmt.Errorf("decode products feed: missing products")
	}

	products := make([]domain.Product, 0, len(*f.Products))
	for _, p := range *f.Products {
		products = append(products, domain.Product{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Weight:      p.Weight,
			Image:       p.Image,
			InStock:     p.InStock,
			Description: p.Description,
		})
	}
	return products, nil
}
