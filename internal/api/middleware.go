package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/service"
)

const userIDHeader = "X-User-ID"

type userKey struct{}

// authenticate resolves X-User-ID to a stored user. The role always comes
// from the database row.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		if raw == "" {
			respondError(w, r, apperr.New(apperr.KindUnauthorized, "missing %s header", userIDHeader))
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, r, apperr.New(apperr.KindUnauthorized, "invalid %s header", userIDHeader))
			return
		}

		user, err := h.svc.Accounts.GetUser(r.Context(), id)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				err = apperr.New(apperr.KindUnauthorized, "unknown user")
			}
			respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).Admin {
			respondError(w, r, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFrom(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey{}).(*models.User)
	return user
}

func actorFrom(r *http.Request) service.Actor {
	user := userFrom(r)
	if user == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: user.ID, Admin: user.Role == models.RoleAdmin}
}
