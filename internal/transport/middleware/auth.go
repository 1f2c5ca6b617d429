package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-tickets/internal/auth"
	"github.com/frahmantamala/expense-tickets/internal/transport"
	"github.com/frahmantamala/expense-tickets/pkg/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// Authenticate resolves the session token from the Authorization header or
// the session cookie and stores the identity on the request context.
func Authenticate(authn Authenticator, cookieName string, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.ExtractToken(r, cookieName)
			if token == "" {
				base.HandleServiceError(w, r, auth.ErrUnauthenticated.WithMessage("missing session token"))
				return
			}

			id, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				base.HandleServiceError(w, r, err)
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), id)
			ctx = logger.With(ctx, "subject", id.Subject, "role", id.EffectiveRole)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
