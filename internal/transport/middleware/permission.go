package middleware

import (
	"net/http"

	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/transport"
)

// RequirePermissions lets the request through only when the effective role of
// the caller holds every listed permission.
func RequirePermissions(authz auth.Authorizer, base *transport.BaseHandler, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				base.HandleServiceError(w, r, auth.ErrUnauthenticated)
				return
			}

			if err := authz.Authorize(r.Context(), id, permissions, r.Method+" "+r.URL.Path); err != nil {
				base.HandleServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
