package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

type validatedTokenKey struct{}

// TokenFromContext returns the access token accepted by Authenticate.
func TokenFromContext(ctx context.Context) (*token.Validated, bool) {
	v, ok := ctx.Value(validatedTokenKey{}).(*token.Validated)
	return v, ok && v != nil
}

// Authenticate requires a valid access token in the Authorization header. The
// rebuilt principal is stored with claims.WithPrincipal for the authz layer.
func Authenticate(validator token.Validator) func(http.Handler) http.Handler {
	// Default: Authorization header with the Bearer scheme.
	tokenStrings := [][]options.TokenStringOption{{}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := oidctoken.GetTokenString(r.Header.Get, tokenStrings)
			if err != nil || strings.TrimSpace(raw) == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			validated, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				if errors.Is(err, token.ErrInvalidToken) {
					writeUnauthorized(w, "invalid token")
					return
				}
				log.Printf("ERROR: token validation for %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusInternalServerError, "server_error", "authentication error")
				return
			}
			if validated.Use != token.UseAccess {
				writeUnauthorized(w, "not an access token")
				return
			}

			ctx := claims.WithPrincipal(r.Context(), validated.Principal)
			ctx = context.WithValue(ctx, validatedTokenKey{}, validated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeError(w, http.StatusUnauthorized, "invalid_token", description)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
