package service

import (
	"context"
	"testing"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/safar/go-sql-shop/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	accounts := NewAccountService(db)

	user, err := accounts.RegisterUser(ctx, "  Ada@Example.com ", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)

	_, err = accounts.RegisterUser(ctx, "ada@example.com", "Ada Again")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = accounts.RegisterUser(ctx, "not-an-email", "Bob")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	admin, err := accounts.CreateAdmin(ctx, "root@example.com", "Root")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = accounts.GetUser(ctx, 999999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAddressOwnershipAndDeletion(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	accounts := NewAccountService(db)
	orders := newTestOrderService(db, nil)
	owner := testutil.CreateUser(t, db)
	other := testutil.CreateUser(t, db)

	_, err := accounts.CreateAddress(ctx, owner.ID, models.Address{Line1: "1 Elm St", City: "Oslo", PostalCode: "0150"})
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err), "country missing")

	addr, err := accounts.CreateAddress(ctx, owner.ID, models.Address{
		Line1: "1 Elm St", City: "Oslo", PostalCode: "0150", Country: "no",
	})
	require.NoError(t, err)
	assert.Equal(t, "NO", addr.Country)

	_, err = accounts.GetAddress(ctx, other.ID, addr.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = accounts.DeleteAddress(ctx, other.ID, addr.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	product := testutil.CreateProduct(t, db, "1.00", 5)
	testutil.AddToCart(t, db, owner.ID, product.ID, 1)
	_, _, err = orders.PlaceOrder(ctx, PlaceOrderRequest{
		UserID: owner.ID, ShippingAddressID: addr.ID, PaymentMethod: models.PaymentMethodPayPal,
	})
	require.NoError(t, err)

	err = accounts.DeleteAddress(ctx, owner.ID, addr.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	spare := testutil.CreateAddress(t, db, owner.ID)
	require.NoError(t, accounts.DeleteAddress(ctx, owner.ID, spare.ID))

	list, err := accounts.ListAddresses(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalogAndReviews(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	catalog := NewCatalogService(db)
	reviews := NewReviewService(db)
	user := testutil.CreateUser(t, db)

	category, err := catalog.CreateCategory(ctx, "Books", "Paper and ink")
	require.NoError(t, err)

	_, err = catalog.CreateCategory(ctx, "Books", "")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	product, err := catalog.CreateProduct(ctx, store.ProductInput{
		SKU: "BK-1", Name: "Go in Practice", Price: decimal.RequireFromString("39.90"), Stock: 4, CategoryID: &category.ID,
	})
	require.NoError(t, err)

	_, err = catalog.CreateProduct(ctx, store.ProductInput{SKU: "BK-1", Name: "Copy", Price: decimal.NewFromInt(1)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = catalog.CreateProduct(ctx, store.ProductInput{SKU: "BK-2", Name: "Bad", Price: decimal.NewFromInt(-1)})
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	updated, err := catalog.SetStock(ctx, product.ID, 10, product.Version)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.StockQuantity)

	_, err = catalog.SetStock(ctx, product.ID, 12, product.Version)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = reviews.CreateReview(ctx, user.ID, product.ID, 6, "")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	_, err = reviews.CreateReview(ctx, user.ID, product.ID, 5, "great")
	require.NoError(t, err)

	_, err = reviews.CreateReview(ctx, user.ID, product.ID, 4, "again")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	page, err := reviews.ListReviews(ctx, product.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = reviews.ListReviews(ctx, 999999, 1, 10)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
