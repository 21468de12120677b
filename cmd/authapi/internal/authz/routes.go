package authz

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// routeModel binds (policy, path pattern, method). Path patterns use chi's
// {param} syntax; method "*" matches any method.
//
//go:embed model.conf
var routeModel string

// Binding attaches policies to a route. Every policy must succeed.
type Binding struct {
	Method   string
	Path     string
	Policies []string
}

// RouteTable answers which policies guard a request path.
type RouteTable struct {
	enforcer *casbin.SyncedEnforcer
	policies []string
	bindings []Binding
}

// NewRouteTable builds the table. A binding naming a policy the registry does
// not know is a *ConfigurationError.
func NewRouteTable(registry *Registry, bindings []Binding) (*RouteTable, error) {
	m, err := model.NewModelFromString(routeModel)
	if err != nil {
		return nil, fmt.Errorf("parse route model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create route enforcer: %w", err)
	}

	var rules [][]string
	for _, b := range bindings {
		if len(b.Policies) == 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("route %s %s has no policy", b.Method, b.Path)}
		}
		method := strings.ToUpper(b.Method)
		if method == "" {
			method = "*"
		}
		for _, name := range b.Policies {
			if _, ok := registry.Policy(name); !ok {
				return nil, &ConfigurationError{Policy: name, Reason: fmt.Sprintf("bound to %s %s but not registered", method, b.Path)}
			}
			rules = append(rules, []string{name, b.Path, method})
		}
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("load route bindings: %w", err)
		}
	}

	return &RouteTable{
		enforcer: enforcer,
		policies: registry.Names(),
		bindings: append([]Binding(nil), bindings...),
	}, nil
}

// PoliciesFor returns the policies bound to method and path, in name order.
// An empty result means the route is not bound.
func (t *RouteTable) PoliciesFor(method, path string) ([]string, error) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	var matched []string
	for _, name := range t.policies {
		ok, err := t.enforcer.Enforce(name, path, method)
		if err != nil {
			return nil, fmt.Errorf("match route policies: %w", err)
		}
		if ok {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// Bindings returns the bindings the table was built from.
func (t *RouteTable) Bindings() []Binding {
	return append([]Binding(nil), t.bindings...)
}
