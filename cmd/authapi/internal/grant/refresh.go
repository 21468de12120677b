package grant

import (
	"context"
	"errors"
	"log"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// refresh exchanges a refresh token for a new pair. The principal is rebuilt
// from current account data; only subject, scopes and client carry over. A
// token issued to a client is only redeemable by that client, and the
// presented token is revoked once the new pair is signed.
func (d *Dispatcher) refresh(ctx context.Context, req Request) (*token.Pair, error) {
	if req.RefreshToken == "" {
		return nil, invalidRequest(DescMissingRefreshToken)
	}

	presented, err := d.tokens.ValidateToken(ctx, req.RefreshToken)
	if errors.Is(err, token.ErrInvalidToken) {
		return nil, invalidGrant(DescRefreshTokenInvalid)
	}
	if err != nil {
		return nil, infrastructure("validate refresh token", err)
	}
	if presented.Use != token.UseRefresh {
		return nil, invalidGrant(DescRefreshTokenInvalid)
	}
	// authenticateClient has already verified req.ClientID
	if presented.ClientID != req.ClientID {
		return nil, invalidGrant(DescRefreshTokenInvalid)
	}

	user, err := d.users.FindByID(ctx, presented.Principal.Subject)
	if isNotFound(err) {
		return nil, invalidGrant(DescRefreshTokenInvalid)
	}
	if err != nil {
		return nil, infrastructure("find user", err)
	}

	allowed, err := d.users.CanSignIn(ctx, user)
	if err != nil {
		return nil, infrastructure("check sign-in", err)
	}
	if !allowed {
		return nil, invalidGrant(DescSignInNotAllowed)
	}
	if d.users.IsLockedOut(user) {
		return nil, invalidGrant(DescLockedOut)
	}

	principal, err := d.enricher.Enrich(ctx, user, presented.Principal.Scopes)
	if err != nil {
		return nil, infrastructure("build principal", err)
	}
	principal.ClientID = presented.ClientID

	pair, err := d.issue(ctx, principal)
	if err != nil {
		return nil, err
	}
	if err := d.tokens.Revoke(ctx, presented); err != nil {
		return nil, infrastructure("rotate refresh token", err)
	}
	log.Printf("INFO: refresh token redeemed for user %s", user.ID)
	return pair, nil
}
