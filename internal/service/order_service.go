package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/events"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/payment"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/pricing"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"go.uber.org/zap"
)

type OrderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	gateway   payment.Gateway
	publisher events.Publisher
	logger    *zap.Logger
}

func NewOrderService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	publisher events.Publisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		products:  products,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrder snapshots the requested product into a new order. Stock is
// checked before anything is written.
func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest, requestID string) (*domain.Order, error) {
	if req.Quantity < 1 || req.Quantity > domain.MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, domain.ErrOutOfInventory
	}

	order := &domain.Order{
		Item: domain.LineItem{
			Product:  product,
			Quantity: req.Quantity,
		},
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.logger.Error("Failed to save order",
			zap.Int("product_id", product.ID),
			zap.Error(err))
		return nil, err
	}

	s.publish(ctx, s.orderEvent(events.OrderCreated, order, requestID))

	s.logger.Info("Order created successfully",
		zap.Int("order_id", order.ID),
		zap.Int("product_id", product.ID),
		zap.Int("quantity", order.Item.Quantity))

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// SetShipping attaches or overwrites the customer email and shipping
// information of an unpaid order.
func (s *OrderService) SetShipping(ctx context.Context, id int, req domain.ShippingRequest, requestID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Paid {
		return nil, domain.ErrAlreadyPaid
	}
	if _, err := pricing.TaxRate(req.ShippingInformation.Province); err != nil {
		return nil, err
	}

	email := req.Email
	shipping := req.ShippingInformation
	order.Email = &email
	order.ShippingInformation = &shipping

	if err := s.save(ctx, order); err != nil {
		return nil, err
	}

	event := s.orderEvent(events.OrderShippingUpdated, order, requestID)
	event.Email = email
	event.Province = shipping.Province
	s.publish(ctx, event)

	s.logger.Info("Shipping information set",
		zap.Int("order_id", order.ID),
		zap.String("province", shipping.Province))

	return order, nil
}

// ChargeCard attempts to pay an order. A decline is not an error: the
// returned order carries the failed transaction and stays unpaid. Card,
// transaction and paid flag are persisted in a single write.
func (s *OrderService) ChargeCard(ctx context.Context, id int, card domain.CreditCard, requestID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Paid {
		return nil, domain.ErrAlreadyPaid
	}
	if order.ShippingInformation == nil {
		return nil, domain.ErrMissingShippingInformation
	}

	card, err = NormalizeCard(card)
	if err != nil {
		return nil, err
	}

	amount, err := pricing.AmountDue(order)
	if err != nil {
		return nil, err
	}

	var gatewayErr error
	tx, err := s.gateway.Charge(ctx, card, amount)
	switch {
	case err == nil && tx != nil:
	case errors.Is(err, payment.ErrCardDeclined):
		tx = payment.FailedTransaction()
	default:
		if err == nil {
			err = errors.New("gateway returned no transaction")
		}
		gatewayErr = err
		tx = payment.FailedTransaction()
		s.logger.Warn("Payment gateway failure",
			zap.Int("order_id", order.ID),
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	order.CreditCard = &card
	order.Transaction = tx
	order.Paid = tx.Success

	if err := s.save(ctx, order); err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			s.logger.Error("Order paid concurrently, charge not recorded",
				zap.Int("order_id", order.ID),
				zap.String("transaction_id", tx.ID))
		}
		return nil, err
	}

	eventType := events.OrderPaid
	if !tx.Success {
		eventType = events.OrderPaymentDeclined
	}
	event := s.orderEvent(eventType, order, requestID)
	event.TransactionID = tx.ID
	event.AmountCharged = tx.AmountCharged.StringFixed(2)
	if gatewayErr != nil {
		event.GatewayError = gatewayErr.Error()
	}
	s.publish(ctx, event)

	if tx.Success {
		s.logger.Info("Order paid",
			zap.Int("order_id", order.ID),
			zap.String("transaction_id", tx.ID),
			zap.String("amount", tx.AmountCharged.StringFixed(2)))
	} else {
		s.logger.Info("Card declined",
			zap.Int("order_id", order.ID),
			zap.String("last_digits", card.LastDigits()))
	}

	return order, nil
}

// NormalizeCard strips spaces from the card number and checks the number and
// expiration month.
func NormalizeCard(card domain.CreditCard) (domain.CreditCard, error) {
	number := strings.ReplaceAll(card.Number, " ", "")
	if number == "" {
		return card, fmt.Errorf("%w: empty number", domain.ErrInvalidCreditCard)
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return card, fmt.Errorf("%w: number must be digits", domain.ErrInvalidCreditCard)
		}
	}
	if card.ExpirationMonth < 1 || card.ExpirationMonth > 12 {
		return card, fmt.Errorf("%w: expiration month %d", domain.ErrInvalidCreditCard, card.ExpirationMonth)
	}
	card.Number = number
	return card, nil
}

func (s *OrderService) save(ctx context.Context, order *domain.Order) error {
	err := s.orders.SaveOrder(ctx, order)
	if errors.Is(err, repository.ErrOrderPaid) {
		return domain.ErrAlreadyPaid
	}
	return err
}

func (s *OrderService) orderEvent(t events.EventType, order *domain.Order, requestID string) events.OrderEvent {
	event := events.NewOrderEvent(t, order.ID, requestID)
	event.ProductID = order.Item.Product.ID
	event.Quantity = order.Item.Quantity
	return event
}

// publish never fails the caller; delivery problems are logged.
func (s *OrderService) publish(ctx context.Context, event events.OrderEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			zap.Int("order_id", event.OrderID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
