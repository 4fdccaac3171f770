package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/schema"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// bindShaped reads the body, checks it against s and decodes it into dst.
func bindShaped(c *gin.Context, s schema.Schema, dst any) bool {
	raw, err := c.GetRawData()
	if err != nil {
		return false
	}
	value, err := schema.DecodeBytes(raw)
	if err != nil || !schema.IsLike(value, s) {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func orderID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		abortWithError(c, http.StatusNotFound, scopeOrder, codeNotFound, "Order not found")
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		Product domain.CreateOrderRequest `json:"product"`
	}
	if !bindShaped(c, schema.NewOrder, &req) {
		missingFields(c, scopeProduct)
		return
	}

	// Request ID from middleware
	requestID := c.GetString("request_id")

	order, err := h.orderService.CreateOrder(c.Request.Context(), req.Product, requestID)
	if err != nil {
		if serviceError(c, scopeProduct, err) {
			return
		}
		h.logger.Error("Failed to create order",
			zap.String("request_id", requestID),
			zap.Error(err))
		internalError(c, scopeProduct)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/order/%d", order.ID))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		if serviceError(c, scopeOrder, err) {
			return
		}
		h.logger.Error("Failed to load order", zap.Int("order_id", id), zap.Error(err))
		internalError(c, scopeOrder)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": NewOrderView(order)})
}

// UpdateOrder serves PUT /order/:id. A body with a top-level credit_card key
// is a payment attempt, anything else is a shipping update.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		missingFields(c, scopeOrder)
		return
	}
	// Both operations read the body again.
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	if value, err := schema.DecodeBytes(raw); err == nil {
		if obj, ok := value.(map[string]any); ok {
			if _, ok := obj[scopeCreditCard]; ok {
				h.ChargeCard(c)
				return
			}
		}
	}
	h.SetShipping(c)
}

func (h *OrderHandler) SetShipping(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req struct {
		Order domain.ShippingRequest `json:"order"`
	}
	if !bindShaped(c, schema.ShippingInformation, &req) {
		missingFields(c, scopeOrder)
		return
	}

	requestID := c.GetString("request_id")
	order, err := h.orderService.SetShipping(c.Request.Context(), id, req.Order, requestID)
	if err != nil {
		if serviceError(c, scopeOrder, err) {
			return
		}
		h.logger.Error("Failed to set shipping information",
			zap.Int("order_id", id),
			zap.String("request_id", requestID),
			zap.Error(err))
		internalError(c, scopeOrder)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": NewOrderView(order)})
}

func (h *OrderHandler) ChargeCard(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req struct {
		CreditCard domain.CreditCard `json:"credit_card"`
	}
	if !bindShaped(c, schema.CreditCard, &req) {
		missingFields(c, scopeOrder)
		return
	}

	requestID := c.GetString("request_id")
	order, err := h.orderService.ChargeCard(c.Request.Context(), id, req.CreditCard, requestID)
	if err != nil {
		if serviceError(c, scopeOrder, err) {
			return
		}
		h.logger.Error("Failed to charge card",
			zap.Int("order_id", id),
			zap.String("request_id", requestID),
			zap.Error(err))
		internalError(c, scopeOrder)
		return
	}

	if !order.Paid {
		cardDeclined(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": NewOrderView(order)})
}
