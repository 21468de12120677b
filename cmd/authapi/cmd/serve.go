package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/cmdutil"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/authz"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/bootstrap"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/grant"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/server"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/telemetry"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/token"
)

// Revoked JTIs are kept this long past token expiry before cleanup.
const revokedJTIGracePeriod = time.Hour

var (
	skipBootstrap   bool
	cleanupInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authorization server",
	Long:  `Starts the HTTP server with the OAuth token endpoints, OpenID discovery and the policy-protected API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stack, err := cmdutil.NewStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close()

		log.Printf("Connected to database")

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				log.Printf("ERROR: %v", err)
			}
		}()

		if skipBootstrap {
			log.Println("WARNING: Skipping bootstrap seeding (--skip-bootstrap)")
		} else if _, err := bootstrap.Run(ctx, stack.BootstrapDependencies(), cfg.Bootstrap); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}

		key, keyID, err := token.LoadOrGenerateSigningKey(cfg.OIDC.SigningKeyPath)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		if cfg.OIDC.SigningKeyPath == "" {
			log.Println("WARNING: No signing key path configured; tokens will not survive a restart")
		}

		tokens, err := token.NewService(key, keyID, stack.Repos.RevokedJTIs, token.Options{
			Issuer:              cfg.OIDC.Issuer,
			Audience:            cfg.OIDC.Audience,
			AccessTokenTTL:      cfg.OIDC.AccessTokenTTL,
			RefreshTokenTTL:     cfg.OIDC.RefreshTokenTTL,
			IDTokenTTL:          cfg.OIDC.IDTokenTTL,
			RevocationCacheSize: cfg.RevocationCacheSize,
		})
		if err != nil {
			return fmt.Errorf("create token service: %w", err)
		}

		store := identity.NewUserStore(stack.Repos.Users, stack.Repos.UserRoles, stack.Repos.UserClaims, identity.Options{
			RequireConfirmedEmail:   cfg.Identity.RequireConfirmedEmail,
			MaxFailedAccessAttempts: cfg.Identity.MaxFailedAccessAttempts,
			LockoutDuration:         cfg.Identity.LockoutDuration,
		})
		profiles := identity.NewProfileStore(stack.Repos.Profiles)

		grantMetrics, err := telemetry.NewGrantMetrics()
		if err != nil {
			return fmt.Errorf("create grant metrics: %w", err)
		}
		policyMetrics, err := telemetry.NewPolicyMetrics()
		if err != nil {
			return fmt.Errorf("create policy metrics: %w", err)
		}

		dispatcher, err := grant.NewDispatcher(grant.Dependencies{
			Users:    store,
			Enricher: claims.NewEnricher(store, profiles, nil),
			Tokens:   tokens,
			Clients:  stack.Repos.Clients,
			Metrics:  grantMetrics,
		}, grant.Options{RequireConfirmedEmail: cfg.Identity.RequireConfirmedEmail})
		if err != nil {
			return fmt.Errorf("create grant dispatcher: %w", err)
		}

		registry, err := authz.DefaultRegistry(nil)
		if err != nil {
			return fmt.Errorf("build policy registry: %w", err)
		}
		routes, err := authz.NewRouteTable(registry, server.DefaultBindings())
		if err != nil {
			return fmt.Errorf("bind policies to routes: %w", err)
		}
		log.Printf("Loaded %d policies for %d protected routes", len(registry.Names()), len(routes.Bindings()))

		healthHandler := func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"ok","issuer":%q}`, tokens.Issuer())
		}

		handler, err := server.NewH2CHandler(server.RouterOptions{
			Granter:       dispatcher,
			Tokens:        tokens,
			Routes:        routes,
			Evaluator:     authz.NewEvaluator(registry, policyMetrics),
			Users:         store,
			Profiles:      profiles,
			HealthHandler: healthHandler,
		})
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Periodically drop denylist rows for tokens that have expired anyway
		cleanupCtx, cancelCleanup := context.WithCancel(ctx)
		defer cancelCleanup()
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := stack.Repos.RevokedJTIs.DeleteExpired(cleanupCtx, revokedJTIGracePeriod); err != nil {
						log.Printf("ERROR: Revoked token cleanup failed: %v", err)
					}
				case <-cleanupCtx.Done():
					log.Printf("INFO: Stopping revoked token cleanup")
					return
				}
			}
		}()

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Issuer: %s", tokens.Issuer())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			// Graceful shutdown with timeout
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipBootstrap, "skip-bootstrap", false, "Do not seed roles, admin user and client on start")
	serveCmd.Flags().DurationVar(&cleanupInterval, "revocation-cleanup-interval", time.Hour, "How often expired revoked token IDs are deleted")
	rootCmd.AddCommand(serveCmd)
}
