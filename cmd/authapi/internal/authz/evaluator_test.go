package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

func principal(roles []string, kv ...string) *claims.Principal {
	p := &claims.Principal{Subject: "user-1", Type: claims.PrincipalUser}
	p.SetValue(claims.KindSubject, "user-1")
	p.SetMany(claims.KindRole, roles)
	for i := 0; i+1 < len(kv); i += 2 {
		p.Claims = append(p.Claims, claims.Parse(kv[i], kv[i+1]))
	}
	return p
}

func at(hour int) func() time.Time {
	return func() time.Time { return time.Date(2025, 10, 4, hour, 15, 0, 0, time.UTC) }
}

func newEvaluator(t *testing.T, now func() time.Time) *Evaluator {
	t.Helper()
	reg, err := DefaultRegistry(now)
	require.NoError(t, err)
	return NewEvaluator(reg, nil)
}

func allowed(t *testing.T, e *Evaluator, policy string, p *claims.Principal, resourceID string) bool {
	t.Helper()
	d, err := e.Evaluate(context.Background(), policy, p, resourceID)
	require.NoError(t, err)
	return d.Allowed()
}

func TestEvaluate_RoleAndClaimPolicies(t *testing.T) {
	e := newEvaluator(t, at(10))

	tests := []struct {
		name   string
		policy string
		p      *claims.Principal
		want   bool
	}{
		{"admin role", PolicyRequireAdminRole, principal([]string{"Admin"}), true},
		{"admin role is case-sensitive", PolicyRequireAdminRole, principal([]string{"admin"}), false},
		{"admin or doctor by doctor", PolicyRequireAdminOrDoctor, principal([]string{"Patient", "Doctor"}), true},
		{"admin or doctor by patient", PolicyRequireAdminOrDoctor, principal([]string{"Patient"}), false},
		{"email confirmed", PolicyRequireEmailConfirmed, principal(nil, "email_verified", "true"), true},
		{"email unconfirmed", PolicyRequireEmailConfirmed, principal(nil, "email_verified", "false"), false},
		{"department present", PolicyRequireDepartment, principal(nil, "department", "Oncology"), true},
		{"department missing", PolicyRequireDepartment, principal(nil), false},
		{"cardiac surgery", PolicyCardiologyDepartment, principal(nil, "department", "Cardiac Surgery"), true},
		{"oncology is not cardiology", PolicyCardiologyDepartment, principal(nil, "department", "Oncology"), false},
		{"anonymous", PolicyAuthenticated, &claims.Principal{}, false},
		{"nil principal", PolicyAuthenticated, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowed(t, e, tt.policy, tt.p, ""))
		})
	}
}

func TestEvaluate_SeniorMedicalStaff(t *testing.T) {
	e := newEvaluator(t, at(10))

	nurse := principal([]string{"Nurse"}, "employment_type", "full-time", "years_experience", "12")
	assert.True(t, allowed(t, e, PolicySeniorMedicalStaff, nurse, ""))

	doctor := principal([]string{"Doctor"}, "years_experience", "20")
	d, err := e.Evaluate(context.Background(), PolicySeniorMedicalStaff, doctor, "")
	require.NoError(t, err)
	assert.Equal(t, Failed, d.Outcome)
	assert.Equal(t, RequireClaim{Type: "employment_type", Values: []string{"full-time"}}, d.FailedOn)

	partTime := principal([]string{"Doctor"}, "employment_type", "part-time", "years_experience", "20")
	assert.False(t, allowed(t, e, PolicySeniorMedicalStaff, partTime, ""))
}

func TestEvaluate_ClaimValuesAreOrCombined(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddPolicy("MultiDept", RequireClaim{Type: "department", Values: []string{"A", "B"}}))
	e := NewEvaluator(reg, nil)

	p := principal(nil, "department", "C", "department", "B")
	assert.True(t, allowed(t, e, "MultiDept", p, ""))
}

func TestEvaluate_WorkingHours(t *testing.T) {
	tests := []struct {
		hour  int
		roles []string
		want  bool
	}{
		{hour: 20, roles: []string{"Doctor"}, want: false},
		{hour: 20, roles: []string{"Admin"}, want: true},
		{hour: 8, roles: []string{"Doctor"}, want: true},
		{hour: 17, roles: []string{"Doctor"}, want: true},
		{hour: 18, roles: []string{"Doctor"}, want: false},
		{hour: 7, roles: nil, want: false},
	}
	for _, tt := range tests {
		e := newEvaluator(t, at(tt.hour))
		assert.Equal(t, tt.want, allowed(t, e, PolicyWorkingHours, principal(tt.roles), ""), "hour %d roles %v", tt.hour, tt.roles)
	}
}

func TestEvaluate_MinimumAge(t *testing.T) {
	today := time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC)
	e := newEvaluator(t, func() time.Time { return today })

	exactly18 := today.AddDate(-18, 0, 0).Format(claims.DateLayout)
	oneDayShort := today.AddDate(-18, 0, 1).Format(claims.DateLayout)

	assert.True(t, allowed(t, e, PolicyMinimumAge, principal(nil, "date_of_birth", exactly18), ""))
	assert.False(t, allowed(t, e, PolicyMinimumAge, principal(nil, "date_of_birth", oneDayShort), ""))
	assert.False(t, allowed(t, e, PolicyMinimumAge, principal(nil), ""), "missing date of birth")
	assert.False(t, allowed(t, e, PolicyMinimumAge, principal(nil, "date_of_birth", "04/10/1990"), ""), "unparseable")
	assert.True(t, allowed(t, e, PolicyMinimumAge, principal(nil, "date_of_birth", "1990-01-01T00:00:00Z"), ""))
}

func TestEvaluate_CanEditPatientRecords(t *testing.T) {
	e := newEvaluator(t, at(10))

	assert.True(t, allowed(t, e, PolicyCanEditPatientRecords, principal([]string{"Admin"}), ""))
	assert.True(t, allowed(t, e, PolicyCanEditPatientRecords, principal([]string{"Doctor"}, "doctor_id", "d-1"), "42"))
	assert.False(t, allowed(t, e, PolicyCanEditPatientRecords, principal([]string{"Doctor"}, "doctor_id", "d-1"), ""))
	assert.False(t, allowed(t, e, PolicyCanEditPatientRecords, principal([]string{"Doctor"}), "42"))
	assert.False(t, allowed(t, e, PolicyCanEditPatientRecords, principal([]string{"Patient"}, "doctor_id", "d-1"), "42"))
}

func TestEvaluate_DepartmentManager(t *testing.T) {
	e := newEvaluator(t, at(10))

	assert.True(t, allowed(t, e, PolicyDepartmentManager, principal([]string{"Manager"}, "department", "ER"), ""))
	assert.False(t, allowed(t, e, PolicyDepartmentManager, principal([]string{"Manager"}), ""))
	assert.False(t, allowed(t, e, PolicyDepartmentManager, principal([]string{"Doctor"}, "department", "ER"), ""))
}

func TestEvaluate_HandlersAreOrCombined(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddPolicy("Edit", EditPatientRecord{}))

	abstain := HandlerFunc(func(context.Context, Request, CustomRequirement) (Vote, error) { return VoteAbstain, nil })
	succeed := HandlerFunc(func(context.Context, Request, CustomRequirement) (Vote, error) { return VoteSucceed, nil })

	reg.AddHandler(KeyEditPatientRecord, abstain)
	e := NewEvaluator(reg, nil)
	assert.False(t, allowed(t, e, "Edit", principal(nil), ""), "abstention alone is a failure")

	reg.AddHandler(KeyEditPatientRecord, succeed)
	assert.True(t, allowed(t, e, "Edit", principal(nil), ""))
}

func TestEvaluate_Errors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddPolicy("Unhandled", WorkingHours{Start: 0, End: 24}))
	require.NoError(t, reg.AddPolicy("Broken", EditPatientRecord{}))
	boom := errors.New("profile store down")
	reg.AddHandler(KeyEditPatientRecord, HandlerFunc(func(context.Context, Request, CustomRequirement) (Vote, error) {
		return VoteAbstain, boom
	}))
	e := NewEvaluator(reg, nil)

	_, err := e.Evaluate(context.Background(), "Missing", principal(nil), "")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Missing", cfgErr.Policy)

	_, err = e.Evaluate(context.Background(), "Unhandled", principal(nil), "")
	assert.ErrorAs(t, err, &cfgErr)

	d, err := e.Evaluate(context.Background(), "Broken", principal(nil), "")
	assert.ErrorIs(t, err, boom)
	assert.False(t, d.Allowed())
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := newEvaluator(t, at(10))
	p := principal([]string{"Doctor"}, "doctor_id", "d-1")
	first := allowed(t, e, PolicyCanEditPatientRecords, p, "7")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, allowed(t, e, PolicyCanEditPatientRecords, p, "7"))
	}
}
