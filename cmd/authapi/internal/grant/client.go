package grant

import (
	"context"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
)

// standard scopes every client may request
var alwaysPermittedScopes = map[string]struct{}{
	oidc.ScopeOpenID:        {},
	oidc.ScopeOfflineAccess: {},
}

// authenticateClient checks the client named by the request. Password and
// refresh grants may be anonymous; client credentials needs a confidential
// client. A named client must exist, authenticate when confidential, and be
// permitted the grant type and every requested scope.
func (d *Dispatcher) authenticateClient(ctx context.Context, req Request) (*models.Client, error) {
	if req.ClientID == "" {
		if req.GrantType == oidc.GrantTypeClientCredentials {
			return nil, invalidClient()
		}
		return nil, nil
	}

	client, err := d.clients.GetByClientID(ctx, req.ClientID)
	if isNotFound(err) {
		return nil, invalidClient()
	}
	if err != nil {
		return nil, infrastructure("load client", err)
	}
	if client.Disabled {
		return nil, invalidClient()
	}

	if client.IsConfidential() {
		if err := bcrypt.CompareHashAndPassword([]byte(client.ClientSecretHash), []byte(req.ClientSecret)); err != nil {
			return nil, invalidClient()
		}
	} else if req.GrantType == oidc.GrantTypeClientCredentials {
		// public clients have nothing to authenticate with
		return nil, invalidClient()
	}

	if !client.GrantTypes.Contains(string(req.GrantType)) {
		return nil, oidc.ErrUnauthorizedClient().WithDescription("%s", DescGrantNotPermitted)
	}

	for _, scope := range req.Scopes {
		if _, ok := alwaysPermittedScopes[scope]; ok {
			continue
		}
		if !client.Scopes.Contains(scope) {
			return nil, oidc.ErrInvalidScope().WithDescription("%s", DescScopeNotPermitted)
		}
	}

	return client, nil
}
