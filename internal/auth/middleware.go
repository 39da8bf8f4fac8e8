package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/enerdash/enerdash/internal/shared"
)

// Authenticator resolves request credentials to a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, email, token string) (*shared.Caller, error)
}

// Middleware authenticates requests via basic auth (email + API token) and
// stores the resolved caller in context. Unauthenticated requests get 401.
func Middleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, token, ok := r.BasicAuth()
			if !ok {
				email, token = bearerCredentials(r)
			}
			if email == "" || token == "" {
				unauthorized(w)
				return
			}
			caller, err := authn.Authenticate(r.Context(), email, token)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), caller)))
		})
	}
}

// bearerCredentials accepts "Authorization: Bearer email:token".
func bearerCredentials(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ""
	}
	email, token, found := strings.Cut(strings.TrimPrefix(header, prefix), ":")
	if !found {
		return "", ""
	}
	return email, token
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="enerdash"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
