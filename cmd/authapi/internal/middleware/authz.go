package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/authz"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

// AuthzDependencies bundles collaborators required by the authorization middleware.
type AuthzDependencies struct {
	Routes    *authz.RouteTable
	Evaluator *authz.Evaluator
	// ResourceParam names the chi URL parameter passed to handlers as the
	// resource identifier (e.g. "patientId"). Empty means no resource.
	ResourceParam string
}

// NewAuthzMiddleware enforces every policy bound to the request's route. It
// must run after routing (chi's With or inline groups) so URL parameters are
// resolved. Routes without a binding are denied.
func NewAuthzMiddleware(deps AuthzDependencies) (func(http.Handler) http.Handler, error) {
	if deps.Routes == nil {
		return nil, errors.New("authz middleware requires a route table")
	}
	if deps.Evaluator == nil {
		return nil, errors.New("authz middleware requires an evaluator")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policies, err := deps.Routes.PoliciesFor(r.Method, r.URL.Path)
			if err != nil {
				log.Printf("ERROR: resolve policies for %s %s: %v", r.Method, r.URL.Path, err)
				writeError(w, http.StatusInternalServerError, "server_error", "authorization error")
				return
			}
			if len(policies) == 0 {
				log.Printf("WARNING: no policy bound to %s %s, denying", r.Method, r.URL.Path)
				writeError(w, http.StatusForbidden, "access_denied", "forbidden")
				return
			}

			principal, _ := claims.FromContext(r.Context())
			resourceID := ""
			if deps.ResourceParam != "" {
				resourceID = chi.URLParam(r, deps.ResourceParam)
			}

			for _, name := range policies {
				decision, err := deps.Evaluator.Evaluate(r.Context(), name, principal, resourceID)
				if err != nil {
					var cfgErr *authz.ConfigurationError
					if errors.As(err, &cfgErr) {
						log.Printf("ERROR: policy configuration for %s %s: %v", r.Method, r.URL.Path, err)
					} else {
						log.Printf("ERROR: evaluate policy %s for %s %s: %v", name, r.Method, r.URL.Path, err)
					}
					writeError(w, http.StatusInternalServerError, "server_error", "authorization error")
					return
				}
				if !decision.Allowed() {
					writeError(w, http.StatusForbidden, "access_denied", "forbidden")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
