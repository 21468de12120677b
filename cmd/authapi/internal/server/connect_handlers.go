package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	authmw "github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/middleware"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

const (
	tokenPath      = "/connect/token"
	introspectPath = "/connect/introspect"
	userInfoPath   = "/connect/userinfo"
	logoutPath     = "/connect/logout"
	jwksPath       = "/.well-known/jwks.json"
)

// HandleToken is the OAuth token endpoint. Client credentials are accepted
// either as HTTP Basic or as form fields.
func HandleToken(granter Granter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, http.StatusBadRequest, string(oidc.InvalidRequest), "The request body could not be parsed.")
			return
		}

		req := grant.Request{
			GrantType:    oidc.GrantType(r.PostForm.Get("grant_type")),
			Username:     r.PostForm.Get("username"),
			Password:     r.PostForm.Get("password"),
			RefreshToken: r.PostForm.Get("refresh_token"),
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			Scopes:       strings.Fields(r.PostForm.Get("scope")),
		}
		if id, secret, ok := r.BasicAuth(); ok {
			req.ClientID, req.ClientSecret = id, secret
		}

		pair, err := granter.Dispatch(r.Context(), req)
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// introspectionResponse follows the shape of RFC 7662 plus the flattened claims.
type introspectionResponse struct {
	Active    bool              `json:"active"`
	Claims    map[string]any `json:"claims,omitempty"`
	Scope     []string       `json:"scope,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	TokenType string         `json:"token_type,omitempty"`
	Exp       int64          `json:"exp,omitempty"`
	Iat       int64          `json:"iat,omitempty"`
}

// HandleIntrospect reports whether a token is active. Invalid, expired and
// revoked tokens all produce {"active": false} and nothing else.
func HandleIntrospect(validator token.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, http.StatusBadRequest, string(oidc.InvalidRequest), "The request body could not be parsed.")
			return
		}
		raw := r.PostForm.Get("token")
		if raw == "" {
			writeJSONError(w, http.StatusBadRequest, string(oidc.InvalidRequest), "The mandatory 'token' parameter is missing.")
			return
		}

		validated, err := validator.ValidateToken(r.Context(), raw)
		if err != nil {
			if !errors.Is(err, token.ErrInvalidToken) {
				log.Printf("ERROR: introspect token: %v", err)
				writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
				return
			}
			writeJSON(w, http.StatusOK, introspectionResponse{Active: false})
			return
		}

		// Multi-valued claims such as role are reported as arrays.
		values := make(map[string][]string, len(validated.Principal.Claims))
		for _, c := range validated.Principal.Claims {
			values[c.Name()] = append(values[c.Name()], c.Value)
		}
		flat := make(map[string]any, len(values))
		for name, vs := range values {
			if len(vs) == 1 {
				flat[name] = vs[0]
				continue
			}
			flat[name] = vs
		}

		writeJSON(w, http.StatusOK, introspectionResponse{
			Active:    true,
			Claims:    flat,
			Scope:     validated.Principal.Scopes,
			ClientID:  validated.ClientID,
			TokenType: string(validated.Use),
			Exp:       validated.ExpiresAt.Unix(),
			Iat:       validated.IssuedAt.Unix(),
		})
	}
}

// UserAccounts is the part of the identity store the userinfo endpoint reads.
type UserAccounts interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	GetRoles(ctx context.Context, user *models.User) ([]string, error)
}

// HandleUserInfo returns the current user's profile from the store, filtered
// by the scopes of the presented access token.
func HandleUserInfo(users UserAccounts, profiles identity.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		principal, ok := claims.FromContext(ctx)
		if !ok || principal.Type != claims.PrincipalUser {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "The access token does not belong to a user.")
			return
		}

		user, err := users.FindByID(ctx, principal.Subject)
		if err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "The user no longer exists.")
				return
			}
			log.Printf("ERROR: userinfo load user %s: %v", principal.Subject, err)
			writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
			return
		}

		info := map[string]any{
			"sub":            user.ID,
			"name":           user.Username,
			"email":          user.Email,
			"email_verified": user.EmailConfirmed,
		}

		wantProfile := principal.HasScope(oidc.ScopeProfile)
		wantRoles := principal.HasScope(claims.ScopeRoles)
		var roles []string
		if wantProfile || wantRoles {
			roles, err = users.GetRoles(ctx, user)
			if err != nil {
				log.Printf("ERROR: userinfo load roles for %s: %v", user.ID, err)
				writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
				return
			}
		}

		if wantProfile {
			info["full_name"] = user.FullName
			info["preferred_username"] = user.Username
			if containsString(roles, claims.RolePatient) {
				patient, err := profiles.GetPatientProfile(ctx, user.ID)
				switch {
				case errors.Is(err, identity.ErrProfileNotFound):
					// patient role without a profile yet
				case err != nil:
					log.Printf("ERROR: userinfo load patient profile for %s: %v", user.ID, err)
					writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
					return
				case patient.DateOfBirth != nil:
					info["birthdate"] = patient.DateOfBirth.Format(claims.DateLayout)
				}
			}
		}
		if wantRoles && len(roles) > 0 {
			info["role"] = roles
		}

		writeJSON(w, http.StatusOK, info)
	}
}

// Revoker denylists an accepted token.
type Revoker interface {
	Revoke(ctx context.Context, v *token.Validated) error
}

// HandleLogout revokes the access token the request was authenticated with.
func HandleLogout(revoker Revoker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validated, ok := authmw.TokenFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}
		if err := revoker.Revoke(r.Context(), validated); err != nil {
			log.Printf("ERROR: logout revoke jti %s: %v", validated.JTI, err)
			writeJSONError(w, http.StatusInternalServerError, string(oidc.ServerError), grant.DescInternal)
			return
		}
		log.Printf("INFO: subject %s logged out", validated.Principal.Subject)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}

// HandleDiscovery serves the OpenID Provider metadata for issuer.
func HandleDiscovery(issuer string) http.HandlerFunc {
	base := strings.TrimRight(issuer, "/")
	doc := &oidc.DiscoveryConfiguration{
		Issuer:                base,
		TokenEndpoint:         base + tokenPath,
		IntrospectionEndpoint: base + introspectPath,
		UserinfoEndpoint:      base + userInfoPath,
		EndSessionEndpoint:    base + logoutPath,
		JwksURI:               base + jwksPath,
		ScopesSupported: []string{
			oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail, oidc.ScopeOfflineAccess,
			claims.ScopeRoles, "api", "appointments", "medical_records",
		},
		ResponseTypesSupported: []string{"token"},
		GrantTypesSupported: []oidc.GrantType{
			grant.GrantTypePassword, oidc.GrantTypeRefreshToken, oidc.GrantTypeClientCredentials,
		},
		SubjectTypesSupported:             []string{"public"},
		IDTokenSigningAlgValuesSupported:  []string{string(jose.RS256)},
		TokenEndpointAuthMethodsSupported: []oidc.AuthMethod{oidc.AuthMethodBasic, oidc.AuthMethodPost, oidc.AuthMethodNone},
		ClaimsSupported: []string{
			"sub", "name", "preferred_username", "email", "email_verified", "role",
			"full_name", "given_name", "family_name", "birthdate", "phone_number",
		},
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, doc)
	}
}

// KeySource publishes the token verification keys.
type KeySource interface {
	JWKS() jose.JSONWebKeySet
}

// HandleJWKS serves the public signing key set.
func HandleJWKS(keys KeySource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, keys.JWKS())
	}
}

func containsString(values []string, v string) bool {
	for _, item := range values {
		if item == v {
			return true
		}
	}
	return false
}
