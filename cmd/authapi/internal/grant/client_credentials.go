package grant

import (
	"context"
	"log"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// clientCredentials issues an access token for the client itself. There is no
// end user, so no refresh or identity token is issued.
func (d *Dispatcher) clientCredentials(ctx context.Context, client *models.Client, req Request) (*token.Pair, error) {
	principal := claims.ForClient(client.ClientID, req.Scopes)

	pair, err := d.issue(ctx, principal)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: client %q authenticated with client credentials", client.ClientID)
	return pair, nil
}
