package orgauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	orgauth "github.com/scriberly/go-orgauth"
)

func TestInvitationStateOf(t *testing.T) {
	now := time.Now()
	ttl := 7 * 24 * time.Hour
	recent := now.Add(-time.Hour)
	stale := now.Add(-ttl - time.Hour)
	accepted := now.Add(-time.Minute)

	tests := []struct {
		name string
		row  *orgauth.Membership
		want orgauth.InvitationState
	}{
		{
			name: "nil row",
			row:  nil,
			want: orgauth.InvitationStateNone,
		},
		{
			name: "direct membership without invitation",
			row:  &orgauth.Membership{Active: true},
			want: orgauth.InvitationStateNone,
		},
		{
			name: "open invitation inside ttl",
			row: &orgauth.Membership{
				InvitationToken:     "tok",
				InvitationCreatedAt: &recent,
			},
			want: orgauth.InvitationStatePending,
		},
		{
			name: "open invitation past ttl",
			row: &orgauth.Membership{
				InvitationToken:     "tok",
				InvitationCreatedAt: &stale,
			},
			want: orgauth.InvitationStateExpired,
		},
		{
			name: "accepted invitation",
			row: &orgauth.Membership{
				InvitationToken:      "tok",
				InvitationCreatedAt:  &recent,
				InvitationAcceptedAt: &accepted,
			},
			want: orgauth.InvitationStateAccepted,
		},
		{
			name: "accepted invitation stays accepted past ttl",
			row: &orgauth.Membership{
				InvitationToken:      "tok",
				InvitationCreatedAt:  &stale,
				InvitationAcceptedAt: &accepted,
			},
			want: orgauth.InvitationStateAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orgauth.InvitationStateOf(tt.row, now, ttl))
		})
	}
}
