package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesTable(t *testing.T) {
	cases := []struct {
		role Role
		want Capability
	}{
		{RoleUser, CapRead},
		{RoleWriter, CapRead | CapWrite},
		{RoleModerator, CapRead | CapWrite | CapModerate},
		{RoleAdmin, CapRead | CapWrite | CapModerate | CapAdmin},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Capabilities(tc.role), "role %s", tc.role)
	}
}

func TestCapabilitiesMonotonic(t *testing.T) {
	// Each role's capability set must contain the previous role's set.
	order := []Role{RoleUser, RoleWriter, RoleModerator, RoleAdmin}
	for i := 1; i < len(order); i++ {
		lower := Capabilities(order[i-1])
		higher := Capabilities(order[i])
		assert.True(t, higher.Has(lower), "%s should include %s", order[i], order[i-1])
	}
}

func TestCapabilitiesUnknownRole(t *testing.T) {
	assert.Equal(t, Capability(0), Capabilities(Role("superuser")))
	assert.False(t, Role("superuser").Valid())
}

func TestRolesAllValid(t *testing.T) {
	require.Len(t, Roles, 4)
	for _, r := range Roles {
		assert.True(t, r.Valid())
		assert.True(t, Capabilities(r).Has(CapRead), "every role can read")
	}
}
