package server

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/chizuquiz/internal/room"
)

type ctxKey int

const ctxKeyRoom ctxKey = iota

const adminRealm = `Basic realm="chizuquiz admin"`

func roomMiddleware(rooms *room.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "gameID")
			rm, ok := rooms.Get(id)
			if !ok {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyRoom, rm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roomFrom(r *http.Request) *room.Room {
	return r.Context().Value(ctxKeyRoom).(*room.Room)
}

// adminAuthMiddleware checks HTTP basic credentials against the configured
// user and bcrypt hash. An empty hash disables the admin API.
func adminAuthMiddleware(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if passwordHash == "" {
				writeError(w, http.StatusForbidden, "admin access disabled")
				return
			}

			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", adminRealm)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
