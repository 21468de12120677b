package claims

// scopeResources maps scopes to the resource servers they grant access to.
var scopeResources = []struct {
	scope    string
	resource string
}{
	{"api", "hospital_api"},
	{"appointments", "appointment_service"},
	{"medical_records", "medical_records_service"},
}

// ResourcesForScopes resolves the resource identifiers for granted scopes.
// Unknown scopes resolve to nothing.
func ResourcesForScopes(scopes []string) []string {
	var resources []string
	for _, m := range scopeResources {
		if hasScope(scopes, m.scope) {
			resources = append(resources, m.resource)
		}
	}
	return resources
}
