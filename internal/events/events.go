package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	OrderCreated         EventType = "order.created"
	OrderShippingUpdated EventType = "order.shipping_updated"
	OrderPaid            EventType = "order.paid"
	OrderPaymentDeclined EventType = "order.payment_declined"
)

type OrderEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	OrderID       int       `json:"order_id"`
	ProductID     int       `json:"product_id"`
	Quantity      int       `json:"quantity"`
	Email         string    `json:"email,omitempty"`
	Province      string    `json:"province,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	AmountCharged string    `json:"amount_charged,omitempty"`
	GatewayError  string    `json:"gateway_error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

func NewOrderEvent(t EventType, orderID int, requestID string) OrderEvent {
	return OrderEvent{
		EventID:   uuid.New().String(),
		Type:      t,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// Publisher delivers order events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	HealthCheck() error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) HealthCheck() error                        { return nil }
func (NopPublisher) Close() error                              { return nil }
