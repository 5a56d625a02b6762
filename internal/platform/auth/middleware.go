package auth

import (
	"net/http"
	"strings"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

// Middleware gates every route except the skip list behind a verified,
// non-revoked bearer token. Denials are rendered by the caller's error
// writer so the envelope stays consistent with the rest of the API.
func Middleware(svc *Service, onError func(http.ResponseWriter, *http.Request, error), skipPaths []string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			token, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			user, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", wallet.E(wallet.CodeTokenNotProvided, nil)
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return "", wallet.E(wallet.CodeTokenValidationError, map[string]any{"reason": "authorization header is not a bearer token"})
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if strings.TrimSpace(token) == "" {
		return "", wallet.E(wallet.CodeTokenNotProvided, nil)
	}
	return token, nil
}
