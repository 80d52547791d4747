package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

// CatalogService manages categories and products.
type CatalogService struct {
	db *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("category name is required")
	}

	category, err := store.CreateCategory(ctx, s.db, name, description)
	if err != nil {
		if database.IsUniqueViolation(err, "categories_name_key") {
			return nil, apperr.Wrap(err, apperr.KindConflict, "category %q already exists", name)
		}
		return nil, translate(err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := store.ListCategories(ctx, s.db)
	return categories, translate(err)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in store.ProductInput) (*models.Product, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)

	switch {
	case in.SKU == "":
		return nil, apperr.Invalid("sku is required")
	case in.Name == "":
		return nil, apperr.Invalid("name is required")
	case in.Price.IsNegative():
		return nil, apperr.Invalid("price must not be negative")
	case in.Stock < 0:
		return nil, apperr.Invalid("stock must not be negative")
	}

	product, err := store.CreateProduct(ctx, s.db, in)
	if err != nil {
		if database.IsUniqueViolation(err, "products_sku_key") {
			return nil, apperr.Wrap(err, apperr.KindConflict, "sku %q already exists", in.SKU)
		}
		return nil, translate(err)
	}
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := store.GetProduct(ctx, s.db, id)
	return product, translate(err)
}

func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	result, err := store.ListProducts(ctx, s.db, filter, page, pageSize)
	return result, translate(err)
}

// UpdatePrice changes the live price. Orders already placed keep their
// captured unit prices.
func (s *CatalogService) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) (*models.Product, error) {
	if price.IsNegative() {
		return nil, apperr.Invalid("price must not be negative")
	}
	product, err := store.UpdateProductPrice(ctx, s.db, id, price)
	return product, translate(err)
}

// SetStock overwrites the stock level if version still matches.
func (s *CatalogService) SetStock(ctx context.Context, id int64, stock, version int) (*models.Product, error) {
	if stock < 0 {
		return nil, apperr.Invalid("stock must not be negative")
	}
	product, err := store.UpdateStockOptimistic(ctx, s.db, id, stock, version)
	return product, translate(err)
}
