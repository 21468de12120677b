package token

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

// Validated is a token that passed every check, with its principal rebuilt
// from the signed claims.
type Validated struct {
	Principal *claims.Principal
	Use       Use
	JTI       string
	ClientID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// envelope is the registered part of a token; Extra holds everything else.
type envelope struct {
	JTI       string         `mapstructure:"jti"`
	Issuer    string         `mapstructure:"iss"`
	Subject   string         `mapstructure:"sub"`
	Audience  any            `mapstructure:"aud"`
	IssuedAt  int64          `mapstructure:"iat"`
	ExpiresAt int64          `mapstructure:"exp"`
	NotBefore int64          `mapstructure:"nbf"`
	Use       string         `mapstructure:"token_use"`
	ClientID  string         `mapstructure:"client_id"`
	Scope     string         `mapstructure:"scope"`
	Extra     map[string]any `mapstructure:",remain"`
}

// ValidateToken verifies signature, issuer and lifetime of raw, then checks the
// revocation denylist. Every rejection wraps ErrInvalidToken; other errors are
// infrastructure failures of the denylist lookup.
func (s *Service) ValidateToken(ctx context.Context, raw string) (*Validated, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.opts.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.opts.Now),
	)

	mapClaims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(raw, mapClaims, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != s.keyID {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return &s.key.PublicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var env envelope
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return nil, fmt.Errorf("create claims decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(mapClaims)); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %w", ErrInvalidToken, err)
	}
	if env.JTI == "" || env.Subject == "" {
		return nil, fmt.Errorf("%w: missing jti or sub", ErrInvalidToken)
	}

	use := Use(env.Use)
	switch use {
	case UseAccess, UseRefresh, UseIdentity:
	default:
		return nil, fmt.Errorf("%w: unknown token_use %q", ErrInvalidToken, env.Use)
	}

	revoked, err := s.isRevoked(ctx, env.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	return &Validated{
		Principal: principalFromEnvelope(env),
		Use:       use,
		JTI:       env.JTI,
		ClientID:  env.ClientID,
		IssuedAt:  time.Unix(env.IssuedAt, 0),
		ExpiresAt: time.Unix(env.ExpiresAt, 0),
	}, nil
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.cache.Contains(jti) {
		return true, nil
	}
	if s.revoked == nil {
		return false, nil
	}
	revoked, err := s.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		s.cache.Add(jti, struct{}{})
	}
	return revoked, nil
}

func principalFromEnvelope(env envelope) *claims.Principal {
	p := &claims.Principal{
		Subject:  env.Subject,
		Type:     claims.PrincipalUser,
		ClientID: env.ClientID,
		Scopes:   strings.Fields(env.Scope),
	}
	p.Resources = claims.ResourcesForScopes(p.Scopes)
	p.SetValue(claims.KindSubject, env.Subject)

	names := make([]string, 0, len(env.Extra))
	for name := range env.Extra {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, v := range claimValues(env.Extra[name]) {
			p.Claims = append(p.Claims, claims.Parse(name, v))
		}
	}

	if v, _ := p.First(claims.KindClientType.String()); v == "service" {
		p.Type = claims.PrincipalClient
	}
	claims.Route(p)
	return p
}

func claimValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}
