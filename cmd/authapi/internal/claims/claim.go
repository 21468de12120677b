package claims

import "strings"

// Destination is a token a claim may be emitted into.
type Destination uint8

const (
	AccessToken Destination = 1 << iota
	IdentityToken
)

// Destinations is a set of Destination values. The zero value is the empty set:
// the claim exists on the principal but is never written into a token.
type Destinations uint8

// Has reports whether d contains dest.
func (d Destinations) Has(dest Destination) bool {
	return uint8(d)&uint8(dest) != 0
}

// With returns d plus dest.
func (d Destinations) With(dest Destination) Destinations {
	return d | Destinations(dest)
}

// IsEmpty reports whether the claim is suppressed from every token.
func (d Destinations) IsEmpty() bool {
	return d == 0
}

func (d Destinations) String() string {
	var parts []string
	if d.Has(AccessToken) {
		parts = append(parts, "access_token")
	}
	if d.Has(IdentityToken) {
		parts = append(parts, "id_token")
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Claim is a typed fact about a principal.
type Claim struct {
	Kind Kind
	// Type is the wire name for KindExtension claims. Ignored for known kinds.
	Type         string
	Value        string
	Destinations Destinations
}

// New returns a claim of a known kind.
func New(kind Kind, value string) Claim {
	return Claim{Kind: kind, Value: value}
}

// Parse returns a claim for an arbitrary wire name. Known names resolve to
// their Kind so that, for example, a stored insurance_number is still suppressed.
func Parse(claimType, value string) Claim {
	kind := ParseKind(claimType)
	if kind == KindExtension {
		return Claim{Kind: KindExtension, Type: claimType, Value: value}
	}
	return Claim{Kind: kind, Value: value}
}

// Name returns the wire name of the claim.
func (c Claim) Name() string {
	if c.Kind == KindExtension {
		return c.Type
	}
	return c.Kind.String()
}
