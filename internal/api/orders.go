package api

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/service"
)

const idempotencyKeyHeader = "Idempotency-Key"

type placeOrderReq struct {
	ShippingAddressID int64                `json:"shipping_address_id"`
	BillingAddressID  *int64               `json:"billing_address_id"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	Notes             string               `json:"notes"`
}

type statusReq struct {
	Status models.OrderStatus `json:"status"`
}

type paymentReq struct {
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// placeOrder answers 201 for a new order and 200 when the Idempotency-Key
// matched an order placed earlier.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ShippingAddressID <= 0 {
		respondError(w, r, apperr.Invalid("shipping_address_id is required"))
		return
	}

	order, replayed, err := h.svc.Orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:            actorFrom(r).UserID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
		IdempotencyKey:    r.Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	code := http.StatusCreated
	if replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.svc.Orders.ListOrders(r.Context(), actorFrom(r).UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.svc.Orders.GetOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.svc.Orders.CancelOrder(r.Context(), actorFrom(r).UserID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.svc.Orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req paymentReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.svc.Orders.UpdatePaymentStatus(r.Context(), id, req.PaymentStatus)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
