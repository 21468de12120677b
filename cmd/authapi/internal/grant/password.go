package grant

import (
	"context"
	"log"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// password runs the resource owner password grant. Rejections are logged once
// by Dispatch without the login or the check that failed.
func (d *Dispatcher) password(ctx context.Context, req Request) (*token.Pair, error) {
	if req.Username == "" || req.Password == "" {
		return nil, invalidRequest(DescMissingCredentials)
	}

	user, err := d.users.FindByUsernameOrEmail(ctx, req.Username)
	if isNotFound(err) {
		return nil, invalidGrant(DescInvalidCredentials)
	}
	if err != nil {
		return nil, infrastructure("find user", err)
	}

	if d.opts.RequireConfirmedEmail && !user.EmailConfirmed {
		return nil, invalidGrant(DescEmailNotConfirmed)
	}

	if d.users.IsLockedOut(user) {
		return nil, invalidGrant(DescLockedOut)
	}

	allowed, err := d.users.CanSignIn(ctx, user)
	if err != nil {
		return nil, infrastructure("check sign-in", err)
	}
	if !allowed {
		return nil, invalidGrant(DescInvalidCredentials)
	}

	result, err := d.users.VerifyPassword(ctx, user, req.Password)
	if err != nil {
		return nil, infrastructure("verify password", err)
	}
	switch result {
	case identity.SignInSucceeded:
	case identity.SignInLockedOut:
		return nil, invalidGrant(DescLockedOutAfterFailures)
	case identity.SignInRequiresTwoFactor:
		return nil, invalidGrant(DescTwoFactorRequired)
	default:
		return nil, invalidGrant(DescInvalidCredentials)
	}

	principal, err := d.enricher.Enrich(ctx, user, req.Scopes)
	if err != nil {
		return nil, infrastructure("build principal", err)
	}
	principal.ClientID = req.ClientID

	pair, err := d.issue(ctx, principal)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: user %s signed in", user.ID)
	return pair, nil
}
