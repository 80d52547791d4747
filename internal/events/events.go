package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderPlaced        = "OrderPlaced"
	TypeOrderStatusChanged = "OrderStatusChanged"
	TypeOrderCancelled     = "OrderCancelled"
)

const envelopeVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderItemPayload struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderPlacedPayload struct {
	OrderID     int64              `json:"order_id"`
	OrderCode   string             `json:"order_code"`
	UserID      int64              `json:"user_id"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []OrderItemPayload `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID       int64                `json:"order_id"`
	OrderCode     string               `json:"order_code"`
	From          models.OrderStatus   `json:"from"`
	To            models.OrderStatus   `json:"to"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	StockRestored bool                 `json:"stock_restored"`
}

// Publisher delivers order events. Implementations must not block the caller
// past ctx.
type Publisher interface {
	Publish(ctx context.Context, ev Envelope) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }

func NewEnvelope(eventType, producer, correlationID string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       data,
	}, nil
}

func OrderPlaced(producer string, order *models.Order) (Envelope, error) {
	items := make([]OrderItemPayload, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, OrderItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return NewEnvelope(TypeOrderPlaced, producer, correlationID(order.ID), OrderPlacedPayload{
		OrderID:     order.ID,
		OrderCode:   order.OrderCode,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	})
}

// StatusChanged builds the event for a transition. Cancellations use their
// own event type so consumers can subscribe to them alone.
func StatusChanged(producer string, order *models.Order, from models.OrderStatus, stockRestored bool) (Envelope, error) {
	eventType := TypeOrderStatusChanged
	if order.Status == models.OrderStatusCancelled {
		eventType = TypeOrderCancelled
	}

	return NewEnvelope(eventType, producer, correlationID(order.ID), OrderStatusChangedPayload{
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		From:          from,
		To:            order.Status,
		PaymentStatus: order.PaymentStatus,
		StockRestored: stockRestored,
	})
}

func correlationID(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}
