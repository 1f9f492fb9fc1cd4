package orgauth

// Role is the role a user holds inside one organization membership.
// Roles never exist outside a membership.
type Role string

const (
	// RoleOrganizationAdmin manages the organization, its users, and all
	// transcription work.
	RoleOrganizationAdmin Role = "organization_admin"
	// RoleOrganizationUser works with transcriptions but cannot manage users.
	RoleOrganizationUser Role = "organization_user"
	// RoleReadOnlyUser can only view transcriptions.
	RoleReadOnlyUser Role = "read_only_user"
)

// Capability is a named permission derived from a Role. Capabilities are
// computed, never stored.
type Capability string

const (
	CapabilityAdmin                Capability = "admin"
	CapabilityManageUsers          Capability = "manage_users"
	CapabilityManageTranscriptions Capability = "manage_transcriptions"
	CapabilityViewTranscriptions   Capability = "view_transcriptions"
	CapabilityExportTranscriptions Capability = "export_transcriptions"
	// CapabilityMember requires nothing beyond an active membership; it is
	// granted to every role so "any member" checks need no role logic.
	CapabilityMember Capability = "member"
)

// roleCapabilities is the fixed Role -> capability lookup table. It is a
// total function over valid roles and the rows form a strict superset
// chain: admin > user > read only.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleOrganizationAdmin: {
		CapabilityAdmin:                true,
		CapabilityManageUsers:          true,
		CapabilityManageTranscriptions: true,
		CapabilityViewTranscriptions:   true,
		CapabilityExportTranscriptions: true,
		CapabilityMember:               true,
	},
	RoleOrganizationUser: {
		CapabilityManageTranscriptions: true,
		CapabilityViewTranscriptions:   true,
		CapabilityExportTranscriptions: true,
		CapabilityMember:               true,
	},
	RoleReadOnlyUser: {
		CapabilityViewTranscriptions: true,
		CapabilityMember:             true,
	},
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants the given capability. Unknown
// roles grant nothing.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	return caps[c]
}

// Capabilities returns the capability set of the role in a stable order.
func (r Role) Capabilities() []Capability {
	caps, ok := roleCapabilities[r]
	if !ok {
		return nil
	}

	out := make([]Capability, 0, len(caps))
	for _, c := range AllCapabilities() {
		if caps[c] {
			out = append(out, c)
		}
	}
	return out
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleOrganizationAdmin,
		RoleOrganizationUser,
		RoleReadOnlyUser,
	}
}

// AllCapabilities returns every capability in a stable order.
func AllCapabilities() []Capability {
	return []Capability{
		CapabilityAdmin,
		CapabilityManageUsers,
		CapabilityManageTranscriptions,
		CapabilityViewTranscriptions,
		CapabilityExportTranscriptions,
		CapabilityMember,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// ParseCapability safely parses a string into a Capability type
func ParseCapability(s string) (Capability, bool) {
	c := Capability(s)
	for _, known := range AllCapabilities() {
		if c == known {
			return c, true
		}
	}
	return c, false
}
