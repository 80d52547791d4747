package api

import (
	"context"
	"errors"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/service"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

var errMockNotConfigured = errors.New("mock not configured")

// MockAccounts resolves user 1 as a customer and user 2 as an admin unless
// GetUserFunc is set.
type MockAccounts struct {
	RegisterUserFunc  func(ctx context.Context, email, name string) (*models.User, error)
	GetUserFunc       func(ctx context.Context, id int64) (*models.User, error)
	ListUsersFunc     func(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	CreateAddressFunc func(ctx context.Context, userID int64, in models.Address) (*models.Address, error)
	DeleteAddressFunc func(ctx context.Context, userID, id int64) error
}

func (m *MockAccounts) RegisterUser(ctx context.Context, email, name string) (*models.User, error) {
	if m.RegisterUserFunc != nil {
		return m.RegisterUserFunc(ctx, email, name)
	}
	return nil, errMockNotConfigured
}

func (m *MockAccounts) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	switch id {
	case 1:
		return &models.User{ID: 1, Email: "customer@example.com", Role: models.RoleCustomer}, nil
	case 2:
		return &models.User{ID: 2, Email: "admin@example.com", Role: models.RoleAdmin}, nil
	}
	return nil, apperr.NotFound("user %d not found", id)
}

func (m *MockAccounts) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, page, pageSize)
	}
	return &store.OffsetPage{Items: []models.User{}, Page: page, PageSize: pageSize}, nil
}

func (m *MockAccounts) CreateAddress(ctx context.Context, userID int64, in models.Address) (*models.Address, error) {
	if m.CreateAddressFunc != nil {
		return m.CreateAddressFunc(ctx, userID, in)
	}
	return nil, errMockNotConfigured
}

func (m *MockAccounts) ListAddresses(context.Context, int64) ([]models.Address, error) {
	return []models.Address{}, nil
}

func (m *MockAccounts) GetAddress(_ context.Context, userID, id int64) (*models.Address, error) {
	return &models.Address{ID: id, UserID: userID}, nil
}

func (m *MockAccounts) DeleteAddress(ctx context.Context, userID, id int64) error {
	if m.DeleteAddressFunc != nil {
		return m.DeleteAddressFunc(ctx, userID, id)
	}
	return nil
}

type MockCatalog struct {
	CreateProductFunc func(ctx context.Context, in store.ProductInput) (*models.Product, error)
	GetProductFunc    func(ctx context.Context, id int64) (*models.Product, error)
	ListProductsFunc  func(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error)
	UpdatePriceFunc   func(ctx context.Context, id int64, price decimal.Decimal) (*models.Product, error)
}

func (m *MockCatalog) CreateCategory(_ context.Context, name, description string) (*models.Category, error) {
	return &models.Category{ID: 1, Name: name, Description: description}, nil
}

func (m *MockCatalog) ListCategories(context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (m *MockCatalog) CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, in)
	}
	return nil, errMockNotConfigured
}

func (m *MockCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return nil, apperr.NotFound("product %d not found", id)
}

func (m *MockCatalog) ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, filter, page, pageSize)
	}
	return &store.OffsetPage{Items: []models.Product{}}, nil
}

func (m *MockCatalog) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Product, error) {
	if m.UpdatePriceFunc != nil {
		return m.UpdatePriceFunc(ctx, id, price)
	}
	return nil, errMockNotConfigured
}

func (m *MockCatalog) SetStock(_ context.Context, id int64, stock, version int) (*models.Product, error) {
	return &models.Product{ID: id, StockQuantity: stock, Version: version + 1}, nil
}

type MockReviews struct{}

func (MockReviews) CreateReview(_ context.Context, userID, productID int64, rating int, comment string) (*models.Review, error) {
	return &models.Review{ID: 1, ProductID: productID, UserID: userID, Rating: rating, Comment: comment}, nil
}

func (MockReviews) ListReviews(context.Context, int64, int, int) (*store.OffsetPage, error) {
	return &store.OffsetPage{Items: []models.Review{}}, nil
}

type MockCarts struct {
	AddItemFunc    func(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error)
	UpdateItemFunc func(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error)
}

func (m *MockCarts) GetCart(_ context.Context, userID int64) (*models.Cart, error) {
	return &models.Cart{ID: 1, UserID: userID, Items: []models.CartItem{}}, nil
}

func (m *MockCarts) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, userID, productID, quantity)
	}
	return nil, errMockNotConfigured
}

func (m *MockCarts) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error) {
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, userID, itemID, quantity)
	}
	return nil, errMockNotConfigured
}

func (m *MockCarts) RemoveItem(_ context.Context, userID, _ int64) (*models.Cart, error) {
	return &models.Cart{ID: 1, UserID: userID, Items: []models.CartItem{}}, nil
}

func (m *MockCarts) ClearCart(context.Context, int64) error {
	return nil
}

type MockOrders struct {
	PlaceOrderFunc          func(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, bool, error)
	GetOrderFunc            func(ctx context.Context, actor service.Actor, id int64) (*models.Order, error)
	ListOrdersFunc          func(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error)
	UpdateStatusFunc        func(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error)
	CancelOrderFunc         func(ctx context.Context, userID, id int64) (*models.Order, error)
	UpdatePaymentStatusFunc func(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error)
}

func (m *MockOrders) PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, bool, error) {
	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, req)
	}
	return nil, false, errMockNotConfigured
}

func (m *MockOrders) GetOrder(ctx context.Context, actor service.Actor, id int64) (*models.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, actor, id)
	}
	return nil, apperr.NotFound("order %d not found", id)
}

func (m *MockOrders) ListOrders(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, userID, cursor, limit)
	}
	return &store.CursorPage{Items: []models.Order{}}, nil
}

func (m *MockOrders) UpdateStatus(ctx context.Context, id int64, to models.OrderStatus) (*models.Order, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, to)
	}
	return nil, errMockNotConfigured
}

func (m *MockOrders) CancelOrder(ctx context.Context, userID, id int64) (*models.Order, error) {
	if m.CancelOrderFunc != nil {
		return m.CancelOrderFunc(ctx, userID, id)
	}
	return nil, errMockNotConfigured
}

func (m *MockOrders) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error) {
	if m.UpdatePaymentStatusFunc != nil {
		return m.UpdatePaymentStatusFunc(ctx, id, status)
	}
	return nil, errMockNotConfigured
}

type MockPinger struct {
	Err error
}

func (m *MockPinger) PingContext(context.Context) error {
	return m.Err
}
