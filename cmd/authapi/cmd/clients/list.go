package clients

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/cmdutil"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered OAuth clients",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		clients, err := stack.Repos.Clients.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}

		if len(clients) == 0 {
			fmt.Println("No clients registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLIENT ID\tNAME\tTYPE\tGRANTS\tDISABLED")
		for _, c := range clients {
			kind := "public"
			if c.IsConfidential() {
				kind = "confidential"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.ClientID, c.DisplayName, kind, strings.Join(c.GrantTypes, ","), c.Disabled)
		}
		return w.Flush()
	},
}
