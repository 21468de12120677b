package authz

import (
	"fmt"
	"strings"
)

// Requirement is one condition of a policy. The set of variants is closed;
// custom logic plugs in through CustomRequirement and registered handlers.
type Requirement interface {
	fmt.Stringer
	isRequirement()
}

// CustomRequirement is satisfied by the handlers registered under its key.
type CustomRequirement interface {
	Requirement
	HandlerKey() string
}

// RequireAuthenticatedUser succeeds for any principal with a subject.
type RequireAuthenticatedUser struct{}

// RequireRole succeeds when the principal holds at least one of Roles.
type RequireRole struct {
	Roles []string
}

// RequireClaim succeeds when the claim is present and, if Values is not
// empty, one of its values is in Values.
type RequireClaim struct {
	Type   string
	Values []string
}

// RequireExpression succeeds when the go-bexpr expression matches the
// principal. See expressionData for the selectors available.
type RequireExpression struct {
	Expr string
}

// Handler keys of the built-in custom requirements.
const (
	KeyEditPatientRecord = "edit_patient_record"
	KeyWorkingHours      = "working_hours"
	KeyMinimumAge        = "minimum_age"
)

// EditPatientRecord guards changes to the patient record named by the resource id.
type EditPatientRecord struct{}

// WorkingHours restricts access to [Start, End) local hours.
type WorkingHours struct {
	Start int
	End   int
}

// MinimumAge requires the date_of_birth claim to be at least Years ago.
type MinimumAge struct {
	Years int
}

func (RequireAuthenticatedUser) isRequirement() {}
func (RequireRole) isRequirement()              {}
func (RequireClaim) isRequirement()             {}
func (RequireExpression) isRequirement()        {}
func (EditPatientRecord) isRequirement()        {}
func (WorkingHours) isRequirement()             {}
func (MinimumAge) isRequirement()               {}

func (EditPatientRecord) HandlerKey() string { return KeyEditPatientRecord }
func (WorkingHours) HandlerKey() string      { return KeyWorkingHours }
func (MinimumAge) HandlerKey() string        { return KeyMinimumAge }

func (RequireAuthenticatedUser) String() string { return "authenticated user" }

func (r RequireRole) String() string {
	return fmt.Sprintf("role in [%s]", strings.Join(r.Roles, ", "))
}

func (r RequireClaim) String() string {
	if len(r.Values) == 0 {
		return fmt.Sprintf("claim %s present", r.Type)
	}
	return fmt.Sprintf("claim %s in [%s]", r.Type, strings.Join(r.Values, ", "))
}

func (r RequireExpression) String() string { return fmt.Sprintf("expression %q", r.Expr) }

func (EditPatientRecord) String() string { return "can edit patient record" }

func (r WorkingHours) String() string {
	return fmt.Sprintf("working hours %02d:00-%02d:00", r.Start, r.End)
}

func (r MinimumAge) String() string { return fmt.Sprintf("minimum age %d", r.Years) }
