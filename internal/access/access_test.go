package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRules(t *testing.T) {
	t.Parallel()

	rules, err := BuildRules()
	require.NoError(t, err)
	require.Len(t, rules, 4)

	assert.Equal(t, Rule{From: RoleIngress, To: RoleCompute, Ports: PortRange{From: 443, To: 443}, Direction: DirectionIngress}, rules[0])
	assert.Equal(t, Rule{From: RoleCompute, To: RoleCompute, Ports: PortRange{}, Direction: DirectionIngress}, rules[1])
	assert.Equal(t, Rule{From: RoleCompute, To: RoleDatabase, Ports: PortRange{From: 5432, To: 5432}, Direction: DirectionIngress}, rules[2])
	assert.Equal(t, Rule{From: RoleCompute, To: RoleCache, Ports: PortRange{From: 6379, To: 6379}, Direction: DirectionIngress}, rules[3])
}

func TestBuilderRejectsDataTierExposure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name:    "internet to database",
			rule:    Rule{From: RoleInternet, To: RoleDatabase, Ports: PortRange{From: 5432, To: 5432}},
			wantErr: true,
		},
		{
			name:    "ingress to cache",
			rule:    Rule{From: RoleIngress, To: RoleCache, Ports: PortRange{From: 6379, To: 6379}},
			wantErr: true,
		},
		{
			name:    "internet to cache all ports",
			rule:    Rule{From: RoleInternet, To: RoleCache, Ports: PortRange{}},
			wantErr: true,
		},
		{
			name: "compute to database",
			rule: Rule{From: RoleCompute, To: RoleDatabase, Ports: PortRange{From: 5432, To: 5432}},
		},
		{
			name: "internet to ingress",
			rule: Rule{From: RoleInternet, To: RoleIngress, Ports: PortRange{From: 443, To: 443}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := NewBuilder()
			err := b.Add(tt.rule)
			if tt.wantErr {
				var violation *ViolationError
				require.ErrorAs(t, err, &violation)
				assert.Equal(t, tt.rule, violation.Rule)
				assert.Empty(t, b.Rules(), "rejected rule must not be recorded")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []Rule{tt.rule}, b.Rules())
		})
	}
}

func TestPortRangeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "*", PortRange{}.String())
	assert.Equal(t, "443", PortRange{From: 443, To: 443}.String())
	assert.Equal(t, "8000-9000", PortRange{From: 8000, To: 9000}.String())
}
