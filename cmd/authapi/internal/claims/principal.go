package claims

import "context"

// PrincipalType differentiates end users from client applications.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalClient PrincipalType = "client"
)

// Principal is the authenticated identity plus its claims for one request.
// It is built fresh per authentication event and never persisted.
type Principal struct {
	Subject   string
	Type      PrincipalType
	ClientID  string
	Claims    []Claim
	Scopes    []string
	Resources []string
}

// IsAuthenticated reports whether the principal carries a subject.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Subject != ""
}

// Set replaces every claim of the same name with c.
func (p *Principal) Set(c Claim) {
	name := c.Name()
	out := p.Claims[:0]
	for _, existing := range p.Claims {
		if existing.Name() != name {
			out = append(out, existing)
		}
	}
	p.Claims = append(out, c)
}

// SetValue is shorthand for Set(New(kind, value)).
func (p *Principal) SetValue(kind Kind, value string) {
	p.Set(New(kind, value))
}

// SetMany replaces every claim of kind with one claim per value.
func (p *Principal) SetMany(kind Kind, values []string) {
	p.Remove(kind.String())
	for _, v := range values {
		p.Claims = append(p.Claims, New(kind, v))
	}
}

// Remove drops every claim with the given wire name.
func (p *Principal) Remove(name string) {
	out := p.Claims[:0]
	for _, existing := range p.Claims {
		if existing.Name() != name {
			out = append(out, existing)
		}
	}
	p.Claims = out
}

// First returns the first value of the named claim.
func (p *Principal) First(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, c := range p.Claims {
		if c.Name() == name {
			return c.Value, true
		}
	}
	return "", false
}

// Values returns every value of the named claim in insertion order.
func (p *Principal) Values(name string) []string {
	if p == nil {
		return nil
	}
	var values []string
	for _, c := range p.Claims {
		if c.Name() == name {
			values = append(values, c.Value)
		}
	}
	return values
}

// Has reports whether the named claim is present.
func (p *Principal) Has(name string) bool {
	_, ok := p.First(name)
	return ok
}

// Roles returns the role names held by the principal.
func (p *Principal) Roles() []string {
	return p.Values(KindRole.String())
}

// IsInRole reports whether the principal holds role. Role names are case-sensitive.
func (p *Principal) IsInRole(role string) bool {
	for _, r := range p.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// HasScope reports whether scope was granted.
func (p *Principal) HasScope(scope string) bool {
	return p != nil && hasScope(p.Scopes, scope)
}

// ForDestination returns the claims routed to dest.
func (p *Principal) ForDestination(dest Destination) []Claim {
	var out []Claim
	for _, c := range p.Claims {
		if c.Destinations.Has(dest) {
			out = append(out, c)
		}
	}
	return out
}

type principalContextKey struct{}

// WithPrincipal stores the authenticated principal on the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext retrieves the authenticated principal from the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok && p != nil
}
