package clients

import (
	"github.com/spf13/cobra"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/bootstrap"
)

// ClientsCmd is the parent command for OAuth client registration
var ClientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage OAuth clients",
	Long:  `Commands for registering OAuth client applications allowed to call the token endpoint.`,
}

func init() {
	createCmd.Flags().StringVar(&input.DisplayName, "name", "", "Display name of the client")
	createCmd.Flags().StringSliceVar(&input.GrantTypes, "grant", []string{"password", "refresh_token"}, "Grant type(s) the client may use")
	createCmd.Flags().StringSliceVar(&input.Scopes, "scope", bootstrap.DefaultClientScopes, "Scope(s) the client may request")
	createCmd.Flags().BoolVar(&input.Public, "public", false, "Register a public client without a secret")

	ClientsCmd.AddCommand(createCmd)
	ClientsCmd.AddCommand(listCmd)
}
