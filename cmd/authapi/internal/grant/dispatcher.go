package grant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/telemetry"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// GrantTypePassword is the resource owner password credentials grant.
// zitadel/oidc does not name it since OAuth 2.1 drops it.
const GrantTypePassword oidc.GrantType = "password"

const tracerName = "authapi/grant"

// Request is a parsed token endpoint request.
type Request struct {
	GrantType    oidc.GrantType
	Username     string
	Password     string
	RefreshToken string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Enricher builds the claim set of a user principal.
type Enricher interface {
	Enrich(ctx context.Context, user *models.User, scopes []string) (*claims.Principal, error)
}

// Tokens is the token layer used by the grant handlers.
type Tokens interface {
	token.Issuer
	token.Validator
	Revoke(ctx context.Context, v *token.Validated) error
}

// ClientLookup resolves registered OAuth clients.
type ClientLookup interface {
	GetByClientID(ctx context.Context, clientID string) (*models.Client, error)
}

// Dependencies holds the collaborators of the Dispatcher.
type Dependencies struct {
	Users    identity.Store
	Enricher Enricher
	Tokens   Tokens
	Clients  ClientLookup
	Metrics  *telemetry.GrantMetrics
}

// Options tunes grant behaviour.
type Options struct {
	// RequireConfirmedEmail rejects password grants for unconfirmed accounts.
	RequireConfirmedEmail bool
}

// Dispatcher routes token requests to the grant handlers.
type Dispatcher struct {
	users    identity.Store
	enricher Enricher
	tokens   Tokens
	clients  ClientLookup
	metrics  *telemetry.GrantMetrics
	opts     Options
}

// NewDispatcher validates deps and returns a Dispatcher.
func NewDispatcher(deps Dependencies, opts Options) (*Dispatcher, error) {
	if deps.Users == nil || deps.Enricher == nil || deps.Tokens == nil || deps.Clients == nil {
		return nil, fmt.Errorf("grant dispatcher dependencies incomplete")
	}
	return &Dispatcher{
		users:    deps.Users,
		enricher: deps.Enricher,
		tokens:   deps.Tokens,
		clients:  deps.Clients,
		metrics:  deps.Metrics,
		opts:     opts,
	}, nil
}

// Dispatch runs the handler for req.GrantType. Rejections are *oidc.Error
// values; anything else wraps ErrInfrastructure. A rejection is logged with
// its OAuth error code only, never the login or the check that failed.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*token.Pair, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "grant.Dispatch",
		attribute.String(telemetry.AttrGrantType, string(req.GrantType)),
		attribute.String(telemetry.AttrClientID, req.ClientID),
	)
	defer span.End()

	pair, err := d.dispatch(ctx, req)

	code := ""
	if err != nil {
		code = ErrorCode(err)
		telemetry.RecordError(span, err)
		if errors.Is(err, ErrInfrastructure) {
			log.Printf("ERROR: %s grant failed: %v", req.GrantType, err)
		} else {
			log.Printf("WARNING: %s grant rejected for client %q: %s", req.GrantType, req.ClientID, code)
		}
	}
	d.metrics.RecordGrant(ctx, string(req.GrantType), code, float64(time.Since(start).Microseconds())/1000)
	return pair, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (*token.Pair, error) {
	switch req.GrantType {
	case GrantTypePassword, oidc.GrantTypeRefreshToken, oidc.GrantTypeClientCredentials:
	default:
		return nil, oidc.ErrUnsupportedGrantType().WithDescription("%s", DescUnsupportedGrantType)
	}

	client, err := d.authenticateClient(ctx, req)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case GrantTypePassword:
		return d.password(ctx, req)
	case oidc.GrantTypeRefreshToken:
		return d.refresh(ctx, req)
	default:
		return d.clientCredentials(ctx, client, req)
	}
}

// issue routes claim destinations and signs the token pair. Routing always
// runs on the final scope set, right before signing.
func (d *Dispatcher) issue(ctx context.Context, p *claims.Principal) (*token.Pair, error) {
	claims.Route(p)
	pair, err := d.tokens.IssueTokenPair(ctx, p)
	if err != nil {
		return nil, infrastructure("issue tokens", err)
	}
	return pair, nil
}

func infrastructure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, repository.ErrNotFound)
}
