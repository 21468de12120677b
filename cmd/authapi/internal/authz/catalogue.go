package authz

import (
	"time"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

// Built-in policy names.
const (
	PolicyAuthenticated         = "Authenticated"
	PolicyRequireAdminRole      = "RequireAdminRole"
	PolicyRequireAdminOrDoctor  = "RequireAdminOrDoctor"
	PolicyRequireDoctorRole     = "RequireDoctorRole"
	PolicyRequirePatientRole    = "RequirePatientRole"
	PolicyRequireHospitalRole   = "RequireHospitalRole"
	PolicyStaffOnly             = "StaffOnly"
	PolicyRequireEmailConfirmed = "RequireEmailConfirmed"
	PolicyRequireDepartment     = "RequireDepartment"
	PolicyCardiologyDepartment  = "CardiologyDepartment"
	PolicySeniorMedicalStaff    = "SeniorMedicalStaff"
	PolicyCanEditPatientRecords = "CanEditPatientRecords"
	PolicyWorkingHours          = "WorkingHours"
	PolicyMinimumAge            = "MinimumAge"
	PolicyDepartmentManager     = "DepartmentManager"
)

// DefaultRegistry returns the hospital policy catalogue with its handlers.
// now drives the time-dependent handlers and defaults to time.Now.
func DefaultRegistry(now func() time.Time) (*Registry, error) {
	if now == nil {
		now = time.Now
	}
	r := NewRegistry()

	policies := []Policy{
		{Name: PolicyAuthenticated, Requirements: []Requirement{RequireAuthenticatedUser{}}},
		{Name: PolicyRequireAdminRole, Requirements: []Requirement{RequireRole{Roles: []string{claims.RoleAdmin}}}},
		{Name: PolicyRequireAdminOrDoctor, Requirements: []Requirement{RequireRole{Roles: []string{claims.RoleAdmin, claims.RoleDoctor}}}},
		{Name: PolicyRequireDoctorRole, Requirements: []Requirement{RequireRole{Roles: []string{claims.RoleDoctor}}}},
		{Name: PolicyRequirePatientRole, Requirements: []Requirement{RequireRole{Roles: []string{claims.RolePatient}}}},
		{Name: PolicyRequireHospitalRole, Requirements: []Requirement{RequireRole{Roles: []string{claims.RoleAdmin, claims.RoleDoctor, claims.RolePatient}}}},
		{Name: PolicyStaffOnly, Requirements: []Requirement{RequireRole{Roles: []string{claims.RoleAdmin, claims.RoleDoctor}}}},
		{Name: PolicyRequireEmailConfirmed, Requirements: []Requirement{RequireClaim{Type: "email_verified", Values: []string{"true"}}}},
		{Name: PolicyRequireDepartment, Requirements: []Requirement{RequireClaim{Type: "department"}}},
		{Name: PolicyCardiologyDepartment, Requirements: []Requirement{RequireClaim{Type: "department", Values: []string{"Cardiology", "Cardiac Surgery"}}}},
		{Name: PolicySeniorMedicalStaff, Requirements: []Requirement{
			RequireAuthenticatedUser{},
			RequireRole{Roles: []string{"Doctor", "Nurse"}},
			RequireClaim{Type: "employment_type", Values: []string{"full-time"}},
			RequireClaim{Type: "years_experience"},
		}},
		{Name: PolicyCanEditPatientRecords, Requirements: []Requirement{EditPatientRecord{}}},
		{Name: PolicyWorkingHours, Requirements: []Requirement{WorkingHours{Start: 8, End: 18}}},
		{Name: PolicyMinimumAge, Requirements: []Requirement{MinimumAge{Years: 18}}},
		{Name: PolicyDepartmentManager, Requirements: []Requirement{
			RequireAuthenticatedUser{},
			RequireExpression{Expr: `"Manager" in roles and "department" in claims`},
		}},
	}
	for _, p := range policies {
		if err := r.AddPolicy(p.Name, p.Requirements...); err != nil {
			return nil, err
		}
	}

	r.AddHandler(KeyEditPatientRecord, EditPatientRecordHandler{})
	r.AddHandler(KeyWorkingHours, WorkingHoursHandler{Now: now})
	r.AddHandler(KeyMinimumAge, MinimumAgeHandler{Now: now})

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
