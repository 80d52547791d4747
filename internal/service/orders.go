package service

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/cache"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/inventory"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

const (
	maxNotesLength          = 1000
	maxIdempotencyKeyLength = 128
	publishTimeout          = 2 * time.Second
)

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Admin  bool
}

type OrderOptions struct {
	PlacementTimeout time.Duration
	MaxRetries       int
	// Producer names this service in published events.
	Producer string
}

type PlaceOrderRequest struct {
	UserID            int64
	ShippingAddressID int64
	BillingAddressID  *int64
	PaymentMethod     models.PaymentMethod
	Notes             string
	IdempotencyKey    string
}

type OrderService struct {
	db        *sql.DB
	guard     *inventory.Guard
	publisher events.Publisher
	cache     cache.OrderCache
	opts      OrderOptions
}

func NewOrderService(db *sql.DB, guard *inventory.Guard, publisher events.Publisher, orderCache cache.OrderCache, opts OrderOptions) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if orderCache == nil {
		orderCache = cache.NopOrderCache{}
	}
	if opts.PlacementTimeout <= 0 {
		opts.PlacementTimeout = 10 * time.Second
	}
	if opts.Producer == "" {
		opts.Producer = "shop-api"
	}
	return &OrderService{
		db:        db,
		guard:     guard,
		publisher: publisher,
		cache:     orderCache,
		opts:      opts,
	}
}

func (s *OrderService) txOptions() database.TxOptions {
	return database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     s.opts.MaxRetries,
	}
}

// PlaceOrder turns the user's cart into an order in one transaction: stock is
// reserved line by line under the product lock, the order and its lines are
// written, and the cart is emptied. Any failure leaves stock, cart and orders
// untouched. replayed is true when IdempotencyKey matched an earlier order.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (order *models.Order, replayed bool, err error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	switch {
	case !req.PaymentMethod.Valid():
		return nil, false, apperr.Invalid("unknown payment method %q", req.PaymentMethod)
	case len(req.Notes) > maxNotesLength:
		return nil, false, apperr.Invalid("notes must be at most %d characters", maxNotesLength)
	case len(req.IdempotencyKey) > maxIdempotencyKeyLength:
		return nil, false, apperr.Invalid("idempotency key must be at most %d characters", maxIdempotencyKeyLength)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.PlacementTimeout)
	defer cancel()

	if req.IdempotencyKey != "" {
		if existing, err := s.findByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err != nil || existing != nil {
			return existing, existing != nil, err
		}
	}

	var orderID int64
	err = database.WithRetry(ctx, s.db, s.txOptions(), func(tx *sql.Tx) error {
		id, found, err := s.placeOrderTx(ctx, tx, req)
		orderID, replayed = id, found
		return err
	})
	if err != nil {
		switch {
		case req.IdempotencyKey != "" && database.IsUniqueViolation(err, "orders_user_idempotency_key"):
			existing, ferr := s.findByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if ferr == nil && existing != nil {
				return existing, true, nil
			}
			return nil, false, apperr.Wrap(err, apperr.KindConflict, "order with this idempotency key is being placed")
		case database.IsUniqueViolation(err, "orders_order_code_key"):
			return nil, false, apperr.Wrap(err, apperr.KindConflict, "order code collision, retry")
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, false, apperr.Wrap(err, apperr.KindUnavailable, "order placement timed out, retry")
		}
		return nil, false, translate(err)
	}

	order, err = store.GetOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, false, translate(err)
	}
	if replayed {
		return order, true, nil
	}

	s.cache.Set(ctx, order)
	s.publish(ctx, func() (events.Envelope, error) { return events.OrderPlaced(s.opts.Producer, order) })

	return order, false, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, userID int64, key string) (*models.Order, error) {
	header, err := store.FindOrderByIdempotencyKey(ctx, s.db, userID, key)
	if errors.Is(err, database.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}

	order, err := store.GetOrder(ctx, s.db, header.ID)
	if err != nil {
		return nil, translate(err)
	}
	return order, nil
}

// placeOrderTx reports the id of the order and whether it already existed
// under the request's idempotency key.
func (s *OrderService) placeOrderTx(ctx context.Context, tx *sql.Tx, req PlaceOrderRequest) (int64, bool, error) {
	exists, err := store.UserExists(ctx, tx, req.UserID)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, apperr.NotFound("user %d not found", req.UserID)
	}

	cart, err := store.LockCart(ctx, tx, req.UserID)
	if err != nil {
		return 0, false, err
	}

	// Placements of one user serialize on the cart row; a same-key request
	// that waited here sees the order the first one committed.
	if req.IdempotencyKey != "" {
		existing, err := store.FindOrderByIdempotencyKey(ctx, tx, req.UserID, req.IdempotencyKey)
		switch {
		case err == nil:
			return existing.ID, true, nil
		case !errors.Is(err, database.ErrOrderNotFound):
			return 0, false, err
		}
	}

	lines, err := store.ListCartItems(ctx, tx, cart.ID)
	if err != nil {
		return 0, false, err
	}
	if len(lines) == 0 {
		return 0, false, apperr.Wrap(ErrEmptyCart, apperr.KindInvalidRequest, "cannot order from empty cart")
	}

	shipping, err := ownedAddress(ctx, tx, req.UserID, req.ShippingAddressID, "shipping")
	if err != nil {
		return 0, false, err
	}
	billingID := shipping.ID
	if req.BillingAddressID != nil {
		billing, err := ownedAddress(ctx, tx, req.UserID, *req.BillingAddressID, "billing")
		if err != nil {
			return 0, false, err
		}
		billingID = billing.ID
	}

	// Every placement locks products in ascending id order, so two orders
	// sharing products cannot deadlock on each other.
	slices.SortFunc(lines, func(a, b models.CartItem) int { return cmp.Compare(a.ProductID, b.ProductID) })

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		product, err := s.guard.Reserve(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			if errors.Is(err, database.ErrInsufficientStock) {
				return 0, false, apperr.Wrap(err, apperr.KindInvalidRequest,
					"insufficient stock for product %q: requested %d", line.ProductName, line.Quantity)
			}
			return 0, false, err
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
	}

	order := &models.Order{
		UserID:            req.UserID,
		OrderCode:         newOrderCode(time.Now()),
		Status:            models.OrderStatusPending,
		TotalAmount:       total,
		ShippingAddressID: shipping.ID,
		BillingAddressID:  billingID,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		Notes:             req.Notes,
	}
	if err := store.InsertOrder(ctx, tx, order, req.IdempotencyKey); err != nil {
		return 0, false, err
	}

	for i := range items {
		items[i].OrderID = order.ID
		if err := store.InsertOrderItem(ctx, tx, &items[i]); err != nil {
			return 0, false, err
		}
	}

	if _, err := store.ClearCart(ctx, tx, cart.ID); err != nil {
		return 0, false, err
	}

	return order.ID, false, nil
}

func ownedAddress(ctx context.Context, q database.Querier, userID, addressID int64, role string) (*models.Address, error) {
	addr, err := store.GetAddress(ctx, q, addressID)
	if err != nil {
		if errors.Is(err, database.ErrAddressNotFound) {
			return nil, apperr.Wrap(err, apperr.KindNotFound, "%s address %d not found", role, addressID)
		}
		return nil, err
	}
	if addr.UserID != userID {
		return nil, apperr.Wrap(ErrAddressOwnership, apperr.KindInvalidRequest,
			"%s address %d does not belong to user %d", role, addressID, userID)
	}
	return addr, nil
}

// newOrderCode returns ORD-<date>-<12 hex digits from a random UUID>. The
// orders_order_code_key constraint backs uniqueness.
func newOrderCode(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// GetOrder returns the order if actor owns it or is an admin. Other users'
// orders are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id int64) (*models.Order, error) {
	order, ok := s.cache.Get(ctx, id)
	if !ok {
		var err error
		order, err = store.GetOrder(ctx, s.db, id)
		if err != nil {
			return nil, translate(err)
		}
		s.cache.Set(ctx, order)
	}

	if !actor.Admin && order.UserID != actor.UserID {
		return nil, apperr.NotFound("order %d not found", id)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInvalidRequest, "invalid cursor")
	}
	if limit < 1 || limit > store.MaxPageSize {
		limit = store.DefaultPageSize
	}

	page, err := store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
	return page, translate(err)
}

// UpdateStatus applies an administrative transition. Moving a PENDING or
// PROCESSING order to CANCELLED or FAILED gives its stock back in the same
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, apperr.Invalid("unknown order status %q", to)
	}

	return s.changeStatus(ctx, id, func(order *models.Order) (models.OrderStatus, models.PaymentStatus, error) {
		if !models.CanTransition(order.Status, to) {
			return "", "", apperr.Wrap(ErrInvalidTransition, apperr.KindInvalidRequest,
				"cannot change order status from %s to %s", order.Status, to)
		}
		return to, paymentAfter(order.PaymentStatus, order.Status, to), nil
	})
}

// CancelOrder cancels the user's own order while it is PENDING or PROCESSING
// and restores the reserved stock.
func (s *OrderService) CancelOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	return s.changeStatus(ctx, id, func(order *models.Order) (models.OrderStatus, models.PaymentStatus, error) {
		if order.UserID != userID {
			return "", "", apperr.NotFound("order %d not found", id)
		}
		if !order.Status.Cancellable() {
			return "", "", apperr.Wrap(ErrNotCancellable, apperr.KindInvalidRequest,
				"order cannot be cancelled in status %s", order.Status)
		}
		return models.OrderStatusCancelled, paymentAfter(order.PaymentStatus, order.Status, models.OrderStatusCancelled), nil
	})
}

// UpdatePaymentStatus records a payment outcome. Orders in a terminal status
// keep their payment status.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("unknown payment status %q", status)
	}

	return s.changeStatus(ctx, id, func(order *models.Order) (models.OrderStatus, models.PaymentStatus, error) {
		if order.Status.Terminal() {
			return "", "", apperr.Invalid("payment status of a %s order cannot change", order.Status)
		}
		return order.Status, status, nil
	})
}

// paymentAfter refunds a captured payment whenever the transition gives the
// stock back (cancelled or failed before shipment); the gateway is a stub so
// this is bookkeeping only.
func paymentAfter(current models.PaymentStatus, from, to models.OrderStatus) models.PaymentStatus {
	if current == models.PaymentStatusPaid && models.RestoresStock(from, to) {
		return models.PaymentStatusRefunded
	}
	return current
}

type decideFunc func(order *models.Order) (models.OrderStatus, models.PaymentStatus, error)

// changeStatus locks the order, asks decide for the new status pair and
// writes it, restocking when the transition releases inventory.
func (s *OrderService) changeStatus(ctx context.Context, id int64, decide decideFunc) (*models.Order, error) {
	var from models.OrderStatus
	var restored bool

	err := database.WithRetry(ctx, s.db, s.txOptions(), func(tx *sql.Tx) error {
		order, err := store.LockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status

		to, payment, err := decide(order)
		if err != nil {
			return err
		}

		restored = models.RestoresStock(from, to)
		if restored {
			if err := s.restock(ctx, tx, order.ID); err != nil {
				return err
			}
		}

		return store.UpdateOrderStatus(ctx, tx, order.ID, to, payment)
	})
	if err != nil {
		return nil, translate(err)
	}

	return s.afterStatusChange(ctx, id, from, restored)
}

func (s *OrderService) restock(ctx context.Context, tx *sql.Tx, orderID int64) error {
	items, err := store.ListOrderItems(ctx, tx, orderID)
	if err != nil {
		return err
	}

	slices.SortFunc(items, func(a, b models.OrderItem) int { return cmp.Compare(a.ProductID, b.ProductID) })
	for _, item := range items {
		if err := s.guard.Restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("restock product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

// afterStatusChange refreshes the cached view and announces the transition.
func (s *OrderService) afterStatusChange(ctx context.Context, id int64, from models.OrderStatus, restored bool) (*models.Order, error) {
	s.cache.Invalidate(ctx, id)

	order, err := store.GetOrder(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}
	s.cache.Set(ctx, order)

	if order.Status != from {
		s.publish(ctx, func() (events.Envelope, error) {
			return events.StatusChanged(s.opts.Producer, order, from, restored)
		})
	}
	return order, nil
}

// publish sends an event after commit. Failures are logged, never returned:
// the order is already durable.
func (s *OrderService) publish(ctx context.Context, build func() (events.Envelope, error)) {
	ev, err := build()
	if err != nil {
		log.Printf("orders: build event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("orders: publish %s for order %s: %v", ev.EventType, ev.CorrelationID, err)
	}
}
