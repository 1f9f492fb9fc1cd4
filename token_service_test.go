package orgauth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orgauth "github.com/scriberly/go-orgauth"
)

func newTestIdentity(id, email string) *MockIdentity {
	identity := &MockIdentity{}
	identity.On("ID").Return(id)
	identity.On("Email").Return(email)
	identity.On("Name").Return("Test User")
	return identity
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	cfg := testConfig()
	service := orgauth.NewTokenService(cfg, newQuietLogger())

	userID := uuid.New()
	orgID := uuid.New()
	identity := newTestIdentity(userID.String(), "user@example.com")

	t.Run("org scoped token round trips", func(t *testing.T) {
		tokenString, err := service.Generate(identity, orgID, orgauth.RoleOrganizationAdmin)
		require.NoError(t, err)
		require.NotEmpty(t, tokenString)

		claims, err := service.Validate(tokenString)
		require.NoError(t, err)

		assert.Equal(t, userID.String(), claims.Subject())
		assert.Equal(t, userID.String(), claims.UserID())
		assert.Equal(t, orgID.String(), claims.OrganizationID())
		assert.Equal(t, string(orgauth.RoleOrganizationAdmin), claims.Role())
		assert.True(t, claims.Can(orgauth.CapabilityManageUsers))
		assert.False(t, claims.Expires().IsZero())
		assert.True(t, claims.Expires().After(time.Now()))
	})

	t.Run("identity only token has no org claims", func(t *testing.T) {
		tokenString, err := service.Generate(identity, uuid.Nil, "")
		require.NoError(t, err)

		claims, err := service.Validate(tokenString)
		require.NoError(t, err)

		assert.Empty(t, claims.OrganizationID())
		assert.Empty(t, claims.Role())
		assert.False(t, claims.Can(orgauth.CapabilityViewTranscriptions))
		assert.False(t, claims.Can(orgauth.CapabilityMember))
	})
}

func TestTokenServiceValidateFailures(t *testing.T) {
	cfg := testConfig()
	service := orgauth.NewTokenService(cfg, newQuietLogger())

	userID := uuid.New()
	identity := newTestIdentity(userID.String(), "user@example.com")

	t.Run("expired token", func(t *testing.T) {
		impl := service.(*orgauth.TokenServiceImpl)

		claims := &orgauth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.GetIssuer(),
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			UID: userID.String(),
		}

		tokenString, err := impl.SignClaims(claims)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, orgauth.IsTokenExpiredError(err))
		assert.False(t, orgauth.IsMalformedError(err))
	})

	t.Run("leeway tolerates freshly expired token", func(t *testing.T) {
		leewayCfg := testConfig()
		leewayCfg.ClockSkewLeeway = 5 * time.Minute
		leewayService := orgauth.NewTokenService(leewayCfg, newQuietLogger())
		impl := leewayService.(*orgauth.TokenServiceImpl)

		claims := &orgauth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    leewayCfg.GetIssuer(),
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
			UID: userID.String(),
		}

		tokenString, err := impl.SignClaims(claims)
		require.NoError(t, err)

		_, err = leewayService.Validate(tokenString)
		assert.NoError(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.SigningKey = "a-different-signing-key"
		otherService := orgauth.NewTokenService(otherCfg, newQuietLogger())

		tokenString, err := otherService.Generate(identity, uuid.Nil, "")
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, orgauth.IsMalformedError(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.Issuer = "someone-else"
		otherService := orgauth.NewTokenService(otherCfg, newQuietLogger())

		tokenString, err := otherService.Generate(identity, uuid.Nil, "")
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, orgauth.IsMalformedError(err))
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := service.Validate("not.a.jwt")
		require.Error(t, err)
		assert.True(t, orgauth.IsMalformedError(err))

		_, err = service.Validate("")
		assert.Error(t, err)
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &orgauth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		require.Error(t, err)
		assert.True(t, orgauth.IsMalformedError(err))
	})
}
