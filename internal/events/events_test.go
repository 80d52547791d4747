package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/safar/go-sql-shop/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            12,
		UserID:        3,
		OrderCode:     "ORD-20261016-ABCDEF123456",
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalAmount:   decimal.RequireFromString("25.00"),
		Items: []models.OrderItem{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
		},
	}
}

func TestOrderPlacedEnvelope(t *testing.T) {
	ev, err := OrderPlaced("shop-api", sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, TypeOrderPlaced, ev.EventType)
	assert.Equal(t, "12", ev.CorrelationID)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.EventVersion)

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "ORD-20261016-ABCDEF123456", payload.OrderCode)
	require.Len(t, payload.Items, 2)
	assert.True(t, payload.TotalAmount.Equal(decimal.NewFromInt(25)))
}

func TestStatusChangedUsesCancelledType(t *testing.T) {
	order := sampleOrder()
	order.Status = models.OrderStatusCancelled

	ev, err := StatusChanged("shop-api", order, models.OrderStatusPending, true)
	require.NoError(t, err)
	assert.Equal(t, TypeOrderCancelled, ev.EventType)

	order.Status = models.OrderStatusShipped
	ev, err = StatusChanged("shop-api", order, models.OrderStatusProcessing, false)
	require.NoError(t, err)
	assert.Equal(t, TypeOrderStatusChanged, ev.EventType)
}

func TestKafkaPublisherFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, 8)
	p.Start()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev, err := OrderPlaced("shop-api", sampleOrder())
		require.NoError(t, err)
		require.NoError(t, p.Publish(ctx, ev))
	}

	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.msgs, 3)
	assert.True(t, w.closed)
	assert.Equal(t, []byte("12"), w.msgs[0].Key)
	assert.Equal(t, TypeOrderPlaced, headerValue(w.msgs[0], "x-event-type"))
}

func TestKafkaPublisherRejectsAfterClose(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{}, 1)
	p.Start()
	p.Close()
	p.Close()
	p.WaitClosed()

	err := p.Publish(context.Background(), Envelope{EventType: TypeOrderPlaced})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestKafkaPublisherRespectsContext(t *testing.T) {
	// Not started: the single buffer slot fills and the next publish must
	// give up when the context expires.
	p := newKafkaPublisher(&fakeWriter{}, 1)
	require.NoError(t, p.Publish(context.Background(), Envelope{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, Envelope{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
