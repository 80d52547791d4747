package api

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/apperr"
)

type addCartItemReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemReq struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Carts.GetCart(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.ClearCart(r.Context(), actorFrom(r).UserID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		respondError(w, r, apperr.Invalid("product_id is required"))
		return
	}

	cart, err := h.svc.Carts.AddItem(r.Context(), actorFrom(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateCartItemReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Quantity == nil {
		respondError(w, r, apperr.Invalid("quantity is required"))
		return
	}

	cart, err := h.svc.Carts.UpdateItem(r.Context(), actorFrom(r).UserID, itemID, *req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	cart, err := h.svc.Carts.RemoveItem(r.Context(), actorFrom(r).UserID, itemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
