package policy

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/authz"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/server"
)

// PolicyCmd is the parent command for authorization policy tooling
var PolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect authorization policies",
	Long:  `Commands for validating the policy catalogue and trying policies against sample principals.`,
}

// EvalInput describes a synthetic principal to evaluate a policy against.
type EvalInput struct {
	Policy    string
	Subject   string
	Roles     []string
	Claims    []string // type=value
	Resource  string
	At        time.Time
	Anonymous bool
}

var (
	evalInput EvalInput
	atFlag    string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the policy catalogue and route bindings",
	Long: `Builds the policy registry and route table exactly as the server does and
reports configuration errors. With --policy, also evaluates that policy against
a principal assembled from --role and --claim.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := evalInput
		in.At = time.Now()
		if atFlag != "" {
			at, err := time.Parse(time.RFC3339, atFlag)
			if err != nil {
				return fmt.Errorf("invalid --at %q: expected RFC3339", atFlag)
			}
			in.At = at
		}

		registry, routes, err := Load(func() time.Time { return in.At })
		if err != nil {
			return err
		}

		if in.Policy == "" {
			return Describe(os.Stdout, registry, routes)
		}

		decision, err := Evaluate(cmd.Context(), registry, in)
		if err != nil {
			return err
		}
		fmt.Printf("Policy %s %s\n", decision.Policy, decision.Outcome)
		if decision.FailedOn != nil {
			fmt.Printf("Failed requirement: %s\n", decision.FailedOn)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&evalInput.Policy, "policy", "", "Policy to evaluate")
	checkCmd.Flags().StringVar(&evalInput.Subject, "subject", "cli-user", "Subject of the sample principal")
	checkCmd.Flags().StringSliceVar(&evalInput.Roles, "role", []string{}, "Role(s) of the sample principal")
	checkCmd.Flags().StringArrayVar(&evalInput.Claims, "claim", []string{}, "Claim(s) of the sample principal, as type=value (repeatable)")
	checkCmd.Flags().StringVar(&evalInput.Resource, "resource", "", "Resource id passed to resource-bound policies")
	checkCmd.Flags().BoolVar(&evalInput.Anonymous, "anonymous", false, "Evaluate as an unauthenticated caller")
	checkCmd.Flags().StringVar(&atFlag, "at", "", "Evaluation time for time-bound policies (RFC3339, default now)")

	PolicyCmd.AddCommand(checkCmd)
}

// Load builds the registry and the route table the server uses. Any
// *authz.ConfigurationError is returned as is.
func Load(now func() time.Time) (*authz.Registry, *authz.RouteTable, error) {
	registry, err := authz.DefaultRegistry(now)
	if err != nil {
		return nil, nil, fmt.Errorf("build policy registry: %w", err)
	}
	if err := registry.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate policy registry: %w", err)
	}
	routes, err := authz.NewRouteTable(registry, server.DefaultBindings())
	if err != nil {
		return nil, nil, fmt.Errorf("bind policies to routes: %w", err)
	}
	return registry, routes, nil
}

// Describe prints every policy with its requirements, then every route binding.
func Describe(out io.Writer, registry *authz.Registry, routes *authz.RouteTable) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POLICY\tREQUIREMENTS")
	for _, name := range registry.Names() {
		policy, _ := registry.Policy(name)
		reqs := make([]string, len(policy.Requirements))
		for i, r := range policy.Requirements {
			reqs[i] = r.String()
		}
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(reqs, "; "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "METHOD\tROUTE\tPOLICIES")
	for _, b := range routes.Bindings() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Method, b.Path, strings.Join(b.Policies, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOK: %d policies, %d route bindings\n", len(registry.Names()), len(routes.Bindings()))
	return nil
}

// Evaluate runs in.Policy against the principal described by in.
func Evaluate(ctx context.Context, registry *authz.Registry, in EvalInput) (authz.Decision, error) {
	var p *claims.Principal
	if !in.Anonymous {
		p = &claims.Principal{Subject: in.Subject, Type: claims.PrincipalUser}
		p.SetValue(claims.KindSubject, in.Subject)
		p.SetMany(claims.KindRole, in.Roles)
		for _, raw := range in.Claims {
			claimType, value, ok := strings.Cut(raw, "=")
			if !ok || claimType == "" {
				return authz.Decision{}, fmt.Errorf("invalid --claim %q: expected type=value", raw)
			}
			p.Claims = append(p.Claims, claims.Parse(claimType, value))
		}
	}

	return authz.NewEvaluator(registry, nil).Evaluate(ctx, in.Policy, p, in.Resource)
}
