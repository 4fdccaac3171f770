package handler

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, products *ProductHandler, orders *OrderHandler, health *HealthHandler) {
	r.GET("/", products.ListProducts)
	r.GET("/health", health.Health)

	r.POST("/order", orders.CreateOrder)
	r.GET("/order/:id", orders.GetOrder)
	r.PUT("/order/:id", orders.UpdateOrder)
	r.PUT("/order/:id/shipping", orders.SetShipping)
	r.PUT("/order/:id/payment", orders.ChargeCard)
}
