package orgauth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	orgauth "github.com/scriberly/go-orgauth"
)

func TestRoleCan(t *testing.T) {
	tests := []struct {
		role       orgauth.Role
		capability orgauth.Capability
		want       bool
	}{
		{orgauth.RoleOrganizationAdmin, orgauth.CapabilityAdmin, true},
		{orgauth.RoleOrganizationAdmin, orgauth.CapabilityManageUsers, true},
		{orgauth.RoleOrganizationAdmin, orgauth.CapabilityManageTranscriptions, true},
		{orgauth.RoleOrganizationAdmin, orgauth.CapabilityViewTranscriptions, true},
		{orgauth.RoleOrganizationAdmin, orgauth.CapabilityExportTranscriptions, true},
		{orgauth.RoleOrganizationUser, orgauth.CapabilityAdmin, false},
		{orgauth.RoleOrganizationUser, orgauth.CapabilityManageUsers, false},
		{orgauth.RoleOrganizationUser, orgauth.CapabilityManageTranscriptions, true},
		{orgauth.RoleOrganizationUser, orgauth.CapabilityExportTranscriptions, true},
		{orgauth.RoleReadOnlyUser, orgauth.CapabilityViewTranscriptions, true},
		{orgauth.RoleReadOnlyUser, orgauth.CapabilityManageTranscriptions, false},
		{orgauth.RoleReadOnlyUser, orgauth.CapabilityExportTranscriptions, false},
		{orgauth.RoleReadOnlyUser, orgauth.CapabilityManageUsers, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.capability))
		})
	}
}

func TestRoleHierarchyIsSupersetChain(t *testing.T) {
	chain := orgauth.AllRoles()

	for i := 0; i < len(chain)-1; i++ {
		higher, lower := chain[i], chain[i+1]
		for _, c := range lower.Capabilities() {
			assert.True(t, higher.Can(c),
				"%s should inherit %s from %s", higher, c, lower)
		}
	}
}

func TestEveryRoleIsAMember(t *testing.T) {
	for _, role := range orgauth.AllRoles() {
		assert.True(t, role.Can(orgauth.CapabilityMember), "role %s", role)
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	role := orgauth.Role("superuser")

	assert.False(t, role.IsValid())
	assert.Nil(t, role.Capabilities())
	for _, c := range orgauth.AllCapabilities() {
		assert.False(t, role.Can(c))
	}
}

func TestParseRole(t *testing.T) {
	t.Run("valid roles round trip", func(t *testing.T) {
		for _, role := range orgauth.AllRoles() {
			parsed, ok := orgauth.ParseRole(string(role))
			assert.True(t, ok)
			assert.Equal(t, role, parsed)
		}
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		_, ok := orgauth.ParseRole("ORGANIZATION_ADMIN")
		assert.False(t, ok)

		_, ok = orgauth.ParseRole("")
		assert.False(t, ok)
	})
}

func TestParseCapability(t *testing.T) {
	parsed, ok := orgauth.ParseCapability("manage_users")
	assert.True(t, ok)
	assert.Equal(t, orgauth.CapabilityManageUsers, parsed)

	_, ok = orgauth.ParseCapability("delete_everything")
	assert.False(t, ok)
}
