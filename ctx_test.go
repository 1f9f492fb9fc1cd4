package orgauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orgauth "github.com/scriberly/go-orgauth"
)

func orgClaims(orgID uuid.UUID, role orgauth.Role) *orgauth.JWTClaims {
	userID := uuid.New().String()
	return &orgauth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UID:      userID,
		OrgID:    orgID.String(),
		UserRole: string(role),
	}
}

func TestUserContext(t *testing.T) {
	user := &orgauth.User{Email: "ctx@example.com"}

	ctx := orgauth.WithContext(context.Background(), user)
	found, ok := orgauth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user, found)

	_, ok = orgauth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := orgClaims(uuid.New(), orgauth.RoleOrganizationAdmin)

	ctx := orgauth.WithClaimsContext(context.Background(), claims)
	found, ok := orgauth.GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.UserID(), found.UserID())

	_, ok = orgauth.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestCan(t *testing.T) {
	t.Run("admin claims grant manage users", func(t *testing.T) {
		ctx := orgauth.WithClaimsContext(context.Background(), orgClaims(uuid.New(), orgauth.RoleOrganizationAdmin))
		assert.True(t, orgauth.Can(ctx, orgauth.CapabilityManageUsers))
	})

	t.Run("read only claims do not", func(t *testing.T) {
		ctx := orgauth.WithClaimsContext(context.Background(), orgClaims(uuid.New(), orgauth.RoleReadOnlyUser))
		assert.False(t, orgauth.Can(ctx, orgauth.CapabilityManageUsers))
		assert.True(t, orgauth.Can(ctx, orgauth.CapabilityViewTranscriptions))
	})

	t.Run("no claims means no", func(t *testing.T) {
		assert.False(t, orgauth.Can(context.Background(), orgauth.CapabilityMember))
	})
}

func TestIsWithinThresholdPeriod(t *testing.T) {
	recent := time.Now().Add(-time.Hour)
	old := time.Now().Add(-48 * time.Hour)

	within, err := orgauth.IsWithinThresholdPeriod(recent, "24h")
	require.NoError(t, err)
	assert.True(t, within)

	within, err = orgauth.IsWithinThresholdPeriod(old, "24h")
	require.NoError(t, err)
	assert.False(t, within)

	outside, err := orgauth.IsOutsideThresholdPeriod(old, "24h")
	require.NoError(t, err)
	assert.True(t, outside)

	_, err = orgauth.IsWithinThresholdPeriod(recent, "not-a-duration")
	assert.Error(t, err)
}
