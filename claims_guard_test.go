package orgauth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardClaims() *JWTClaims {
	now := time.Now()
	userID := uuid.New().String()
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "orgauth-test",
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"api"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UID:      userID,
		OrgID:    uuid.New().String(),
		UserRole: string(RoleOrganizationUser),
	}
}

func TestImmutableClaimsSnapshot(t *testing.T) {
	t.Run("untouched claims pass", func(t *testing.T) {
		claims := guardClaims()
		snapshot := captureImmutableClaims(claims)
		assert.NoError(t, snapshot.validate(claims))
	})

	t.Run("metadata additions pass", func(t *testing.T) {
		claims := guardClaims()
		snapshot := captureImmutableClaims(claims)

		claims.Metadata = map[string]any{"plan": "pro"}
		assert.NoError(t, snapshot.validate(claims))
	})

	t.Run("mutations are rejected", func(t *testing.T) {
		mutations := map[string]func(*JWTClaims){
			"subject":  func(c *JWTClaims) { c.RegisteredClaims.Subject = "someone-else" },
			"issuer":   func(c *JWTClaims) { c.RegisteredClaims.Issuer = "evil" },
			"uid":      func(c *JWTClaims) { c.UID = uuid.New().String() },
			"org":      func(c *JWTClaims) { c.OrgID = uuid.New().String() },
			"role":     func(c *JWTClaims) { c.UserRole = string(RoleOrganizationAdmin) },
			"audience": func(c *JWTClaims) { c.RegisteredClaims.Audience = jwt.ClaimStrings{"other"} },
			"expiry": func(c *JWTClaims) {
				c.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(48 * time.Hour))
			},
			"issued at": func(c *JWTClaims) {
				c.RegisteredClaims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			},
		}

		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				claims := guardClaims()
				snapshot := captureImmutableClaims(claims)

				mutate(claims)
				err := snapshot.validate(claims)
				require.Error(t, err, "mutation of %s must be caught", name)
			})
		}
	})
}
