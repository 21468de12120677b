package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/clients"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/policy"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/users"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
)

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "authapi",
	Short: "Hospital booking authorization server",
	Long: `authapi issues OAuth2/OpenID Connect tokens for the hospital booking
platform and guards its API with claims-based authorization policies.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Debug {
			log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: HOSPITAL_DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: HOSPITAL_SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Public base URL, default token issuer (env: HOSPITAL_SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: HOSPITAL_DEBUG)")

	// Flags override env and file values only when set
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", rootCmd.PersistentFlags().Lookup("server-addr"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server-url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(clients.ClientsCmd)
	rootCmd.AddCommand(policy.PolicyCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
