package claims

import "github.com/zitadel/oidc/v3/pkg/oidc"

// ScopeRoles is the non-standard scope that releases role claims to the ID token.
const ScopeRoles = "roles"

// DestinationsFor decides which tokens carry a claim of the given kind.
// The result depends only on the kind and the granted scopes.
func DestinationsFor(kind Kind, scopes []string) Destinations {
	var d Destinations
	switch kind {
	case KindName, KindPreferredUsername:
		d = d.With(AccessToken)
		if hasScope(scopes, oidc.ScopeProfile) {
			d = d.With(IdentityToken)
		}
	case KindEmail, KindEmailVerified:
		d = d.With(AccessToken)
		if hasScope(scopes, oidc.ScopeEmail) {
			d = d.With(IdentityToken)
		}
	case KindRole, KindDepartment, KindEmployeeID, KindLicenseNumber, KindPatientID:
		d = d.With(AccessToken)
		if hasScope(scopes, ScopeRoles) {
			d = d.With(IdentityToken)
		}
	case KindGivenName, KindFamilyName, KindBirthdate, KindPhoneNumber, KindFullName:
		if hasScope(scopes, oidc.ScopeProfile) {
			d = d.With(IdentityToken)
		}
	case KindSecurityStamp, KindInsuranceNumber, KindSocialSecurityNumber:
		// never emitted
	case KindSubject, KindPhoneNumberVerified, KindDoctorID, KindSpecialization,
		KindCanPrescribe, KindDateOfBirth, KindAge, KindAdminLevel,
		KindCanManageUsers, KindCanViewReports, KindClientType:
		d = d.With(AccessToken)
	case KindExtension:
		d = d.With(AccessToken)
	default:
		d = d.With(AccessToken)
	}
	return d
}

// Route assigns destinations to every claim of p from its granted scopes.
// It must run after enrichment has attached the final scope set.
func Route(p *Principal) {
	for i := range p.Claims {
		p.Claims[i].Destinations = DestinationsFor(p.Claims[i].Kind, p.Scopes)
	}
}

func hasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
