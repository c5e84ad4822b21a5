package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// WithIdentity trusts the identity headers set by the authentication layer
// in front of this service and rejects requests that lack them.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errBody("missing identity", "UNAUTHORIZED"))
			return
		}
		id := dining.Identity{
			UserID:       userID,
			Role:         r.Header.Get("X-User-Role"),
			DepartmentID: r.Header.Get("X-Department-Id"),
		}
		ctx := dining.WithIdentity(r.Context(), id)
		ctx = dining.WithTraceID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
