package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	catalogService *service.CatalogService
	logger         *zap.Logger
}

func NewProductHandler(catalogService *service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListProducts returns every product, including those out of stock.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		internalError(c, scopeProduct)
		return
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views})
}
