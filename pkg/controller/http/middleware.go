package http

import (
	"log/slog"
	"net/http"

	"github.com/secmon-lab/tickerchat/pkg/domain/model/auth"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

// identityMiddleware resolves the caller from the Authorization header. A missing
// or invalid token continues as anonymous; chat works without an account.
func identityMiddleware(identity usecase.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := identity.Resolve(ctx, r.Header.Get("Authorization"))
			if err != nil {
				logging.From(ctx).Info("continue as anonymous", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.From(ctx).With(slog.String("owner_id", string(principal.OwnerID)))
			ctx = logging.With(auth.ContextWithPrincipal(ctx, principal), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
