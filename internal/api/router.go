// Package api exposes the shop over HTTP with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/service"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

type Accounts interface {
	RegisterUser(ctx context.Context, email, name string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	CreateAddress(ctx context.Context, userID int64, in models.Address) (*models.Address, error)
	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
	GetAddress(ctx context.Context, userID, id int64) (*models.Address, error)
	DeleteAddress(ctx context.Context, userID, id int64) error
}

type Catalog interface {
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Product, error)
	SetStock(ctx context.Context, id int64, stock, version int) (*models.Product, error)
}

type Reviews interface {
	CreateReview(ctx context.Context, userID, productID int64, rating int, comment string) (*models.Review, error)
	ListReviews(ctx context.Context, productID int64, page, pageSize int) (*store.OffsetPage, error)
}

type Carts interface {
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (*models.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
}

type Orders interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, bool, error)
	GetOrder(ctx context.Context, actor service.Actor, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error)
	UpdateStatus(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, id int64) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error)
}

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	Accounts Accounts
	Catalog  Catalog
	Reviews  Reviews
	Carts    Carts
	Orders   Orders
	DB       Pinger
}

type Handler struct {
	svc Services
}

func NewRouter(svc Services) *chi.Mux {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", h.healthz)

	r.Post("/users", h.registerUser)
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/reviews", h.listReviews)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/users/me", h.currentUser)

		r.Post("/addresses", h.createAddress)
		r.Get("/addresses", h.listAddresses)
		r.Get("/addresses/{id}", h.getAddress)
		r.Delete("/addresses/{id}", h.deleteAddress)

		r.Post("/products/{id}/reviews", h.createReview)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addCartItem)
		r.Patch("/cart/items/{itemID}", h.updateCartItem)
		r.Delete("/cart/items/{itemID}", h.removeCartItem)

		r.Post("/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Put("/orders/{id}/cancel", h.cancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/users", h.listUsers)
			r.Post("/categories", h.createCategory)
			r.Post("/products", h.createProduct)
			r.Patch("/products/{id}/price", h.updatePrice)
			r.Put("/products/{id}/stock", h.setStock)
			r.Patch("/orders/{id}/status", h.updateOrderStatus)
			r.Patch("/orders/{id}/payment", h.updatePaymentStatus)
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.DB.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
