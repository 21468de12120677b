package grant

import (
	"errors"

	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// ErrInfrastructure marks store, token-layer or timeout failures. Callers log
// the wrapped detail and answer with a generic server_error.
var ErrInfrastructure = errors.New("infrastructure failure")

// Error descriptions returned to the caller. They never reveal which check failed
// beyond what the account holder is entitled to know.
const (
	DescInvalidCredentials     = "The username/password couple is invalid."
	DescEmailNotConfirmed      = "Email confirmation is required."
	DescLockedOut              = "The account is locked out."
	DescLockedOutAfterFailures = "The account has been locked out due to multiple failed login attempts."
	DescTwoFactorRequired      = "Two-factor authentication is required."
	DescRefreshTokenInvalid    = "The refresh token is no longer valid."
	DescSignInNotAllowed       = "The user is no longer allowed to sign in."
	DescUnsupportedGrantType   = "The specified grant type is not supported."
	DescMissingCredentials     = "The mandatory 'username' and/or 'password' parameters are missing."
	DescMissingRefreshToken    = "The mandatory 'refresh_token' parameter is missing."
	DescInvalidClient          = "The specified client credentials are invalid."
	DescGrantNotPermitted      = "The client application is not allowed to use the specified grant type."
	DescScopeNotPermitted      = "The client application is not allowed to use the specified scope."
	DescInternal               = "An internal error occurred."
)

func invalidGrant(desc string) *oidc.Error {
	return oidc.ErrInvalidGrant().WithDescription("%s", desc)
}

func invalidRequest(desc string) *oidc.Error {
	return oidc.ErrInvalidRequest().WithDescription("%s", desc)
}

func invalidClient() *oidc.Error {
	return oidc.ErrInvalidClient().WithDescription("%s", DescInvalidClient)
}

// ErrorCode returns the OAuth error code carried by err, or server_error for
// anything that is not an *oidc.Error.
func ErrorCode(err error) string {
	var oerr *oidc.Error
	if errors.As(err, &oerr) {
		return string(oerr.ErrorType)
	}
	return string(oidc.ServerError)
}
