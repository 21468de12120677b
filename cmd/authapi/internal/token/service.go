package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// ErrInvalidToken is returned for tokens that fail signature, issuer, expiry or
// revocation checks. The wrapped error carries the reason for logging.
var ErrInvalidToken = errors.New("invalid token")

// Use tells the three kinds of issued token apart. It travels in the token_use claim.
type Use string

const (
	UseAccess   Use = "access"
	UseRefresh  Use = "refresh"
	UseIdentity Use = "id"
)

const (
	claimTokenUse = "token_use"
	claimScope    = "scope"
	claimClientID = "client_id"
)

// registered claims are owned by the envelope and never copied from the principal
var reservedClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
	claimTokenUse: {}, claimScope: {}, claimClientID: {},
}

// Pair is the result of a successful grant, shaped like the token endpoint response.
type Pair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Issuer signs tokens for an enriched, routed principal.
type Issuer interface {
	IssueTokenPair(ctx context.Context, p *claims.Principal) (*Pair, error)
}

// Validator checks a token this service issued and rebuilds its principal.
type Validator interface {
	ValidateToken(ctx context.Context, raw string) (*Validated, error)
}

// Options configures token lifetimes and identifiers.
type Options struct {
	Issuer              string
	Audience            string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	IDTokenTTL          time.Duration
	RevocationCacheSize int
	Now                 func() time.Time
}

// Service issues and validates RS256 JWTs with a single signing key.
type Service struct {
	key     *rsa.PrivateKey
	keyID   string
	signer  jose.Signer
	opts    Options
	revoked repository.RevokedJTIRepository
	// known-revoked JTIs, checked before the repository
	cache *lru.Cache[string, struct{}]
}

// NewService builds a Service. revoked may be nil, in which case revocation
// only lasts as long as the in-memory cache entry.
func NewService(key *rsa.PrivateKey, keyID string, revoked repository.RevokedJTIRepository, opts Options) (*Service, error) {
	if key == nil {
		return nil, fmt.Errorf("signing key is required")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RevocationCacheSize <= 0 {
		opts.RevocationCacheSize = 1024
	}

	jwk := &jose.JSONWebKey{Key: key, Algorithm: string(jose.RS256), KeyID: keyID}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: jwk}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	cache, err := lru.New[string, struct{}](opts.RevocationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create revocation cache: %w", err)
	}

	return &Service{
		key:     key,
		keyID:   keyID,
		signer:  signer,
		opts:    opts,
		revoked: revoked,
		cache:   cache,
	}, nil
}

// IssueTokenPair signs an access token for p. Users also receive a refresh
// token, and an identity token when the openid scope was granted. Claims are
// taken from their routed destinations, so Route must have run on p.
func (s *Service) IssueTokenPair(ctx context.Context, p *claims.Principal) (*Pair, error) {
	if !p.IsAuthenticated() {
		return nil, fmt.Errorf("principal has no subject")
	}
	now := s.opts.Now()
	scope := strings.Join(p.Scopes, " ")

	accessClaims := claimMap(p.ForDestination(claims.AccessToken))
	accessClaims[claimTokenUse] = string(UseAccess)
	if scope != "" {
		accessClaims[claimScope] = scope
	}
	if p.ClientID != "" {
		accessClaims[claimClientID] = p.ClientID
	}
	audience := uniqueAudience(append([]string{s.opts.Audience}, p.Resources...))

	access, err := s.sign(p.Subject, audience, now, now.Add(s.opts.AccessTokenTTL), accessClaims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	pair := &Pair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.opts.AccessTokenTTL.Seconds()),
		Scope:       scope,
	}
	if p.Type != claims.PrincipalUser {
		return pair, nil
	}

	refreshClaims := map[string]any{claimTokenUse: string(UseRefresh)}
	if scope != "" {
		refreshClaims[claimScope] = scope
	}
	if p.ClientID != "" {
		refreshClaims[claimClientID] = p.ClientID
	}
	// refresh tokens are only ever presented back to this issuer
	pair.RefreshToken, err = s.sign(p.Subject, []string{s.opts.Issuer}, now, now.Add(s.opts.RefreshTokenTTL), refreshClaims)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if p.HasScope(oidc.ScopeOpenID) {
		idClaims := claimMap(p.ForDestination(claims.IdentityToken))
		idClaims[claimTokenUse] = string(UseIdentity)
		idAudience := s.opts.Audience
		if p.ClientID != "" {
			idAudience = p.ClientID
		}
		pair.IDToken, err = s.sign(p.Subject, []string{idAudience}, now, now.Add(s.opts.IDTokenTTL), idClaims)
		if err != nil {
			return nil, fmt.Errorf("sign identity token: %w", err)
		}
	}

	return pair, nil
}

func (s *Service) sign(subject string, audience []string, now, exp time.Time, extra map[string]any) (string, error) {
	tokenClaims := &oidc.IDTokenClaims{
		TokenClaims: oidc.TokenClaims{
			Issuer:     s.opts.Issuer,
			Subject:    subject,
			Audience:   oidc.Audience(audience),
			Expiration: oidc.FromTime(exp),
			IssuedAt:   oidc.FromTime(now),
			JWTID:      uuid.NewString(),
		},
		Claims: extra,
	}
	return jwt.Signed(s.signer).Claims(tokenClaims).Serialize()
}

// Revoke denylists the token's JTI until it expires.
func (s *Service) Revoke(ctx context.Context, v *Validated) error {
	if v == nil || v.JTI == "" {
		return fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	if s.revoked != nil {
		err := s.revoked.Create(ctx, &models.RevokedJTI{
			JTI:       v.JTI,
			Subject:   v.Principal.Subject,
			Exp:       v.ExpiresAt,
			RevokedAt: s.opts.Now(),
		})
		if err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	s.cache.Add(v.JTI, struct{}{})
	return nil
}

// JWKS returns the public half of the signing key.
func (s *Service) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &s.key.PublicKey,
			KeyID:     s.keyID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		}},
	}
}

// Issuer returns the iss value stamped on every token.
func (s *Service) Issuer() string {
	return s.opts.Issuer
}

// claimMap flattens claims into JWT claim values. A name with one value is
// written as a string, a name with several values as an array.
func claimMap(list []claims.Claim) map[string]any {
	grouped := make(map[string][]string)
	for _, c := range list {
		name := c.Name()
		if _, reserved := reservedClaims[name]; reserved || name == "" {
			continue
		}
		grouped[name] = append(grouped[name], c.Value)
	}

	out := make(map[string]any, len(grouped))
	for name, values := range grouped {
		if len(values) == 1 {
			out[name] = values[0]
			continue
		}
		out[name] = values
	}
	return out
}

func uniqueAudience(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
