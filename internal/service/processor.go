package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

// PaymentProcessor moves PENDING orders to PROCESSING with a simulated
// payment. Several processors may run against the same database; SKIP LOCKED
// keeps them off each other's orders.
type PaymentProcessor struct {
	orders   *OrderService
	interval time.Duration
}

func NewPaymentProcessor(orders *OrderService, interval time.Duration) *PaymentProcessor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PaymentProcessor{orders: orders, interval: interval}
}

// Run drains pending orders every interval until ctx is done.
func (p *PaymentProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("payment processor: started, interval %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("payment processor: stopped")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *PaymentProcessor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			log.Printf("payment processor: %v", err)
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessNext handles the oldest unclaimed PENDING order. It reports false
// when there was nothing to do.
func (p *PaymentProcessor) ProcessNext(ctx context.Context) (bool, error) {
	var orderID int64

	err := database.WithTransaction(ctx, p.orders.db, p.orders.txOptions(), func(tx *sql.Tx) error {
		order, err := store.ClaimNextPendingOrder(ctx, tx)
		if err != nil {
			return err
		}
		orderID = order.ID

		return store.UpdateOrderStatus(ctx, tx, order.ID, models.OrderStatusProcessing, simulatePayment(order))
	})
	if errors.Is(err, database.ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := p.orders.afterStatusChange(ctx, orderID, models.OrderStatusPending, false); err != nil {
		return true, err
	}
	return true, nil
}

// simulatePayment captures every method except cash on delivery, which is
// collected by the courier.
func simulatePayment(order *models.Order) models.PaymentStatus {
	if order.PaymentMethod == models.PaymentMethodCashOnDelivery {
		return order.PaymentStatus
	}
	return models.PaymentStatusPaid
}
