package middleware

import (
	"net/http"

	"github.com/andrewpaige1/tarjetas-api/auth"
	"github.com/andrewpaige1/tarjetas-api/logger"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
)

// EnsureValidToken validates the bearer token when one is sent and stores
// the principal in the request context. Requests without a token pass
// through anonymously; handlers that need a user reject them.
func EnsureValidToken(v auth.TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := jwtmiddleware.AuthHeaderTokenExtractor(r)
			if err != nil {
				http.Error(w, "Malformed Authorization header", http.StatusUnauthorized)
				return
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := v.Validate(r.Context(), token)
			if err != nil {
				log.Debug("EnsureValidToken: rejected token", "path", r.URL.Path, "error", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// SyncUserMiddleware makes sure the caller has a user row before the handler
// runs. The auth cache creates it on first sight.
func SyncUserMiddleware(cache *auth.Cache) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.PrincipalFrom(r.Context()); !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if cache.GetUser(r.Context()) == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}
