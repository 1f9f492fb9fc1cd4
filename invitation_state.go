package orgauth

import "time"

// InvitationState classifies a membership row's invitation lifecycle.
type InvitationState string

const (
	// InvitationStateNone marks memberships created without an
	// invitation flow.
	InvitationStateNone InvitationState = "none"
	// InvitationStatePending is an open invitation that can still be
	// accepted.
	InvitationStatePending InvitationState = "pending"
	// InvitationStateAccepted is a claimed invitation.
	InvitationStateAccepted InvitationState = "accepted"
	// InvitationStateExpired is an open invitation past its TTL. The
	// state is derived, never stored; the row stays reusable for
	// re-invites.
	InvitationStateExpired InvitationState = "expired"
)

// InvitationStateOf derives the lifecycle state of a membership row at
// the given instant.
func InvitationStateOf(m *Membership, now time.Time, ttl time.Duration) InvitationState {
	if m == nil || (m.InvitationToken == "" && m.InvitationAcceptedAt == nil) {
		return InvitationStateNone
	}

	if m.InvitationAcceptedAt != nil {
		return InvitationStateAccepted
	}

	if m.InvitationCreatedAt != nil && now.After(m.InvitationCreatedAt.Add(ttl)) {
		return InvitationStateExpired
	}

	return InvitationStatePending
}
