package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/authz"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	authmw "github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/middleware"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// Granter runs token endpoint requests.
type Granter interface {
	Dispatch(ctx context.Context, req grant.Request) (*token.Pair, error)
}

// TokenService is the token layer as seen by the HTTP handlers.
type TokenService interface {
	token.Validator
	Revoke(ctx context.Context, v *token.Validated) error
	JWKS() jose.JSONWebKeySet
	Issuer() string
}

// RouterOptions controls the construction of the HTTP router.
// Granter, Tokens, Routes and Evaluator are required.
type RouterOptions struct {
	Granter       Granter
	Tokens        TokenService
	Routes        *authz.RouteTable
	Evaluator     *authz.Evaluator
	Users         UserAccounts
	Profiles      identity.ProfileStore
	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:5001",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, the
// OAuth endpoints and the policy-protected API routes.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.Granter == nil || opts.Tokens == nil {
		return nil, fmt.Errorf("router requires a granter and a token service")
	}

	authorize, err := authmw.NewAuthzMiddleware(authmw.AuthzDependencies{
		Routes:        opts.Routes,
		Evaluator:     opts.Evaluator,
		ResourceParam: PatientIDParam,
	})
	if err != nil {
		return nil, fmt.Errorf("create authz middleware: %w", err)
	}
	authenticate := authmw.Authenticate(opts.Tokens)

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	// OAuth / OIDC endpoints
	r.Post(tokenPath, HandleToken(opts.Granter))
	r.Post(introspectPath, HandleIntrospect(opts.Tokens))
	if opts.Users != nil && opts.Profiles != nil {
		r.With(authenticate).Get(userInfoPath, HandleUserInfo(opts.Users, opts.Profiles))
	} else {
		log.Println("WARNING: Skipping /connect/userinfo - user store not available")
	}
	r.With(authenticate).Post(logoutPath, HandleLogout(opts.Tokens))
	r.Get("/.well-known/openid-configuration", HandleDiscovery(opts.Tokens.Issuer()))
	r.Get(jwksPath, HandleJWKS(opts.Tokens))

	// Every /api route is authenticated, then checked against the route table
	// once chi has resolved the URL parameters.
	r.Group(func(api chi.Router) {
		api.Use(authenticate)
		protected := api.With(authorize)
		mountAppointments(protected)
		mountPatientRecords(protected)
		mountTestAuth(protected)
	})

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	return r, nil
}

// NewH2CHandler wraps the shared router with an h2c server to provide HTTP/2
// over cleartext.
func NewH2CHandler(opts RouterOptions) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	return h2c.NewHandler(router, &http2.Server{}), nil
}
