package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker interface {
	HealthCheck() error
}

type HealthHandler struct {
	store  Pinger
	events HealthChecker
	tls    bool
}

func NewHealthHandler(store Pinger, events HealthChecker, tlsEnabled bool) *HealthHandler {
	return &HealthHandler{store: store, events: events, tls: tlsEnabled}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := gin.H{
		"status":  "healthy",
		"service": "checkout-service",
		"tls":     h.tls,
		"storage": "healthy",
		"kafka":   "healthy",
	}
	code := http.StatusOK

	if err := h.store.Ping(c.Request.Context()); err != nil {
		status["storage"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	if err := h.events.HealthCheck(); err != nil {
		status["kafka"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		status["status"] = "unhealthy"
	}
	c.JSON(code, status)
}
