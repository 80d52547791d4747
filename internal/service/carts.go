package service

import (
	"context"
	"database/sql"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

// CartService mutates a user's cart. Stock checks here are advisory; order
// placement checks again under the product lock.
type CartService struct {
	db *sql.DB
}

func NewCartService(db *sql.DB) *CartService {
	return &CartService{db: db}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	cart, err := store.GetOrCreateCart(ctx, s.db, userID)
	if err != nil {
		return nil, translate(err)
	}

	items, err := store.ListCartItems(ctx, s.db, cart.ID)
	if err != nil {
		return nil, translate(err)
	}

	fillCartTotals(cart, items)
	return cart, nil
}

func fillCartTotals(cart *models.Cart, items []models.CartItem) {
	cart.Items = items
	cart.Total = decimal.Zero
	cart.ItemCount = 0
	for _, item := range items {
		cart.Total = cart.Total.Add(item.Subtotal)
		cart.ItemCount += item.Quantity
	}
}

// AddItem merges quantity into the line for productID, creating it if needed.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive")
	}

	err := s.withCart(ctx, userID, func(tx *sql.Tx, cart *models.Cart) error {
		product, err := store.GetProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		existing, err := store.CartItemQuantity(ctx, tx, cart.ID, productID)
		if err != nil {
			return err
		}

		if err := checkStock(product, existing, quantity); err != nil {
			return err
		}

		_, err = store.AddCartItem(ctx, tx, cart.ID, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.Cart, error) {
	err := s.withCart(ctx, userID, func(tx *sql.Tx, cart *models.Cart) error {
		item, err := ownedCartItem(ctx, tx, cart, itemID)
		if err != nil {
			return err
		}

		if quantity <= 0 {
			return store.DeleteCartItem(ctx, tx, item.ID)
		}

		product, err := store.GetProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		if err := checkStock(product, 0, quantity); err != nil {
			return err
		}

		return store.UpdateCartItemQuantity(ctx, tx, item.ID, quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (*models.Cart, error) {
	err := s.withCart(ctx, userID, func(tx *sql.Tx, cart *models.Cart) error {
		item, err := ownedCartItem(ctx, tx, cart, itemID)
		if err != nil {
			return err
		}
		return store.DeleteCartItem(ctx, tx, item.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	return s.withCart(ctx, userID, func(tx *sql.Tx, cart *models.Cart) error {
		_, err := store.ClearCart(ctx, tx, cart.ID)
		return err
	})
}

// withCart runs fn in a transaction holding the user's cart row lock.
func (s *CartService) withCart(ctx context.Context, userID int64, fn func(*sql.Tx, *models.Cart) error) error {
	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cart, err := store.LockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		return fn(tx, cart)
	})
	return translate(err)
}

func ownedCartItem(ctx context.Context, q database.Querier, cart *models.Cart, itemID int64) (*models.CartItem, error) {
	item, err := store.GetCartItem(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, apperr.Wrap(ErrCartOwnership, apperr.KindForbidden, "cart item %d does not belong to this cart", itemID)
	}
	return item, nil
}

// checkStock compares against the headroom left by held units so a huge
// quantity cannot overflow the sum.
func checkStock(product *models.Product, held, quantity int) error {
	if quantity > product.StockQuantity-held {
		return apperr.Wrap(database.ErrInsufficientStock, apperr.KindInvalidRequest,
			"only %d units of %q in stock, %d already in cart, requested %d more",
			product.StockQuantity, product.Name, held, quantity)
	}
	return nil
}
