package clients

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/spf13/cobra"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/crypto/bcrypt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/cmdutil"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// secretBytes is the entropy of generated client secrets.
const secretBytes = 32

var supportedGrants = []oidc.GrantType{
	grant.GrantTypePassword,
	oidc.GrantTypeRefreshToken,
	oidc.GrantTypeClientCredentials,
}

// CreateInput describes a client registration.
type CreateInput struct {
	ClientID    string
	DisplayName string
	GrantTypes  []string
	Scopes      []string
	Public      bool
}

var input CreateInput

var createCmd = &cobra.Command{
	Use:   "create [client-id]",
	Short: "Register a new OAuth client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := input
		in.ClientID = args[0]

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := cmd.Context()
		stack, err := cmdutil.NewStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close()

		client, secret, err := Create(ctx, stack.Repos.Clients, in)
		if err != nil {
			return err
		}

		fmt.Println("Client registered successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("Client ID: %s\n", client.ClientID)
		fmt.Printf("Grant types: %s\n", strings.Join(client.GrantTypes, ", "))
		fmt.Printf("Scopes: %s\n", strings.Join(client.Scopes, " "))
		if secret != "" {
			fmt.Printf("Client Secret: %s\n", secret)
			fmt.Println("IMPORTANT: Store the client secret securely. It will not be shown again.")
		} else {
			fmt.Println("Public client: no secret issued")
		}
		fmt.Println("----------------------------------------")
		return nil
	},
}

// Create registers a client and returns it with its plaintext secret, which
// is empty for public clients. Only the bcrypt hash of the secret is stored.
func Create(ctx context.Context, clients repository.ClientRepository, in CreateInput) (*models.Client, string, error) {
	if strings.TrimSpace(in.ClientID) == "" {
		return nil, "", fmt.Errorf("client id is required")
	}
	if len(in.GrantTypes) == 0 {
		return nil, "", fmt.Errorf("at least one grant type must be specified using --grant")
	}
	for _, g := range in.GrantTypes {
		if !isSupportedGrant(g) {
			return nil, "", fmt.Errorf("unsupported grant type %q", g)
		}
		if in.Public && oidc.GrantType(g) == oidc.GrantTypeClientCredentials {
			return nil, "", fmt.Errorf("public clients cannot use the client_credentials grant")
		}
	}

	_, err := clients.GetByClientID(ctx, in.ClientID)
	if err == nil {
		return nil, "", fmt.Errorf("client %q already exists", in.ClientID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check client id uniqueness: %w", err)
	}

	client := &models.Client{
		ClientID:    in.ClientID,
		DisplayName: in.DisplayName,
		GrantTypes:  append(models.StringList(nil), in.GrantTypes...),
		Scopes:      append(models.StringList(nil), in.Scopes...),
	}

	var secret string
	if !in.Public {
		secret, err = generateSecret()
		if err != nil {
			return nil, "", err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", fmt.Errorf("failed to hash client secret: %w", err)
		}
		client.ClientSecretHash = string(hash)
	}

	if err := clients.Create(ctx, client); err != nil {
		return nil, "", fmt.Errorf("failed to create client: %w", err)
	}
	return client, secret, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate client secret: %w", err)
	}
	return base58.Encode(buf), nil
}

func isSupportedGrant(g string) bool {
	for _, supported := range supportedGrants {
		if string(supported) == g {
			return true
		}
	}
	return false
}
