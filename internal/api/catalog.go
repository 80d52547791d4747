package api

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

type categoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	category, err := h.svc.Catalog.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type productReq struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock_quantity"`
	CategoryID  *int64          `json:"category_id"`
	ImageURLs   []string        `json:"image_urls"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.svc.Catalog.CreateProduct(r.Context(), store.ProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.svc.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	categoryID, err := queryInt64Ptr(r, "category_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	products, err := h.svc.Catalog.ListProducts(r.Context(), store.ProductFilter{CategoryID: categoryID}, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

type priceReq struct {
	Price *decimal.Decimal `json:"price"`
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req priceReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Price == nil {
		respondError(w, r, apperr.Invalid("price is required"))
		return
	}

	product, err := h.svc.Catalog.UpdatePrice(r.Context(), id, *req.Price)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type stockReq struct {
	Stock   int `json:"stock_quantity"`
	Version int `json:"version"`
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req stockReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.svc.Catalog.SetStock(r.Context(), id, req.Stock, req.Version)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req reviewReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	review, err := h.svc.Reviews.CreateReview(r.Context(), actorFrom(r).UserID, productID, req.Rating, req.Comment)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	reviews, err := h.svc.Reviews.ListReviews(r.Context(), productID, page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
