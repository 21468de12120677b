package authz

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports a policy setup mistake: an unknown policy name, a
// custom requirement nobody handles, or an expression that does not compile.
// It is a programming error, caught at startup.
type ConfigurationError struct {
	Policy string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Policy == "" {
		return "authorization configuration: " + e.Reason
	}
	return fmt.Sprintf("authorization policy %q: %s", e.Policy, e.Reason)
}

// Policy is a named, immutable list of requirements that must all succeed.
type Policy struct {
	Name         string
	Requirements []Requirement
}

// Registry holds policies and the handlers of custom requirements.
// Populate it at startup, then treat it as read-only.
type Registry struct {
	policies map[string]Policy
	handlers map[string][]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]Policy),
		handlers: make(map[string][]Handler),
	}
}

// AddPolicy registers a policy. Names are unique and case-sensitive. A policy
// without requirements admits any authenticated principal.
func (r *Registry) AddPolicy(name string, requirements ...Requirement) error {
	if strings.TrimSpace(name) == "" {
		return &ConfigurationError{Reason: "policy name is empty"}
	}
	if _, exists := r.policies[name]; exists {
		return &ConfigurationError{Policy: name, Reason: "already registered"}
	}
	r.policies[name] = Policy{
		Name:         name,
		Requirements: append([]Requirement(nil), requirements...),
	}
	return nil
}

// AddHandler registers h for custom requirements with the given key. Several
// handlers may share a key; any one of them succeeding satisfies the requirement.
func (r *Registry) AddHandler(key string, h Handler) {
	r.handlers[key] = append(r.handlers[key], h)
}

// Policy returns the named policy.
func (r *Registry) Policy(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names returns every policy name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) handlersFor(key string) []Handler {
	return r.handlers[key]
}

// Validate checks every policy can be evaluated: custom requirements have a
// handler, expressions compile, role and claim requirements are not empty.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		for _, req := range r.policies[name].Requirements {
			if err := r.validateRequirement(req); err != nil {
				return &ConfigurationError{Policy: name, Reason: err.Error()}
			}
		}
	}
	return nil
}

func (r *Registry) validateRequirement(req Requirement) error {
	switch v := req.(type) {
	case RequireAuthenticatedUser:
		return nil
	case RequireRole:
		if len(v.Roles) == 0 {
			return fmt.Errorf("role requirement lists no roles")
		}
	case RequireClaim:
		if v.Type == "" {
			return fmt.Errorf("claim requirement has no claim type")
		}
	case RequireExpression:
		if _, err := compileExpression(v.Expr); err != nil {
			return err
		}
	case CustomRequirement:
		if len(r.handlersFor(v.HandlerKey())) == 0 {
			return fmt.Errorf("no handler registered for %q", v.HandlerKey())
		}
	default:
		return fmt.Errorf("unsupported requirement %T", req)
	}
	return nil
}
