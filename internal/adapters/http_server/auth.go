package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

type identityKey struct{}

// IdentityFrom returns the caller set by RequireAuth.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// RequireAuth rejects requests without a valid "Bearer <ID token>" header.
func RequireAuth(v domain.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(raw, "Bearer ")
			token = strings.TrimSpace(token)
			if !found || token == "" || v == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("token rejected")
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
		})
	}
}
