package api

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/models"
)

type registerUserReq struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.svc.Accounts.RegisterUser(r.Context(), req.Email, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	users, err := h.svc.Accounts.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type addressReq struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var req addressReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	addr, err := h.svc.Accounts.CreateAddress(r.Context(), actorFrom(r).UserID, models.Address{
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, addr)
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.svc.Accounts.ListAddresses(r.Context(), actorFrom(r).UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addresses)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	addr, err := h.svc.Accounts.GetAddress(r.Context(), actorFrom(r).UserID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.svc.Accounts.DeleteAddress(r.Context(), actorFrom(r).UserID, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
