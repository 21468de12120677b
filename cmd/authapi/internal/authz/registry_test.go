package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddPolicy(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddPolicy("A", RequireAuthenticatedUser{}))

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, reg.AddPolicy("A", RequireAuthenticatedUser{}), &cfgErr, "duplicate")
	assert.ErrorAs(t, reg.AddPolicy("", RequireAuthenticatedUser{}), &cfgErr, "empty name")
}

func TestRegistry_PolicyWithoutRequirements(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddPolicy("Open"))
	require.NoError(t, reg.Validate())

	e := NewEvaluator(reg, nil)
	d, err := e.Evaluate(context.Background(), "Open", principal([]string{"Patient"}), "")
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	d, err = e.Evaluate(context.Background(), "Open", nil, "")
	require.NoError(t, err)
	assert.False(t, d.Allowed(), "anonymous caller")
	assert.Equal(t, Failed, d.Outcome)
}

func TestRegistry_RequirementsAreCopied(t *testing.T) {
	reg := NewRegistry()
	reqs := []Requirement{RequireRole{Roles: []string{"Admin"}}}
	require.NoError(t, reg.AddPolicy("A", reqs...))

	reqs[0] = RequireAuthenticatedUser{}
	p, ok := reg.Policy("A")
	require.True(t, ok)
	assert.Equal(t, RequireRole{Roles: []string{"Admin"}}, p.Requirements[0])
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Requirement
		handler bool
		wantErr bool
	}{
		{name: "custom without handler", req: MinimumAge{Years: 18}, wantErr: true},
		{name: "custom with handler", req: MinimumAge{Years: 18}, handler: true},
		{name: "bad expression", req: RequireExpression{Expr: `roles ==`}, wantErr: true},
		{name: "good expression", req: RequireExpression{Expr: `"Admin" in roles`}},
		{name: "empty role list", req: RequireRole{}, wantErr: true},
		{name: "claim without type", req: RequireClaim{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.AddPolicy("P", tt.req))
			if tt.handler {
				reg.AddHandler(KeyMinimumAge, MinimumAgeHandler{})
			}
			err := reg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "P", cfgErr.Policy)
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := DefaultRegistry(nil)
	require.NoError(t, err)
	assert.Contains(t, reg.Names(), PolicySeniorMedicalStaff)
	assert.Contains(t, reg.Names(), PolicyDepartmentManager)
	assert.Len(t, reg.Names(), 15)
}
