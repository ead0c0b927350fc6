package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorized(t *testing.T) {
	tests := []struct {
		name     string
		required Role
		roles    []Role
		want     bool
	}{
		{"exact match", RoleTransport, []Role{RoleTransport}, true},
		{"missing role", RoleTransport, []Role{RoleField}, false},
		{"empty role set", RoleProcessing, nil, false},
		{"manager bypasses", RoleTransport, []Role{RoleManager}, true},
		{"superadmin bypasses", RoleProcessing, []Role{RoleSuperadmin}, true},
		{"match among several", RoleProcessing, []Role{RoleField, RoleProcessing}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Authorized(tt.required, tt.roles))
		})
	}
}

func TestParseRoles(t *testing.T) {
	roles := ParseRoles("field, transport,unknown,SUPERADMIN")
	require.Equal(t, []Role{RoleField, RoleTransport, RoleSuperadmin}, roles)

	require.Nil(t, ParseRoles(""))
}

func TestActorHasRole(t *testing.T) {
	actor := Actor{ID: "op-1", Roles: []Role{RoleField, RoleTransport}}
	require.True(t, actor.HasRole(RoleTransport))
	require.False(t, actor.HasRole(RoleSuperadmin))
}
