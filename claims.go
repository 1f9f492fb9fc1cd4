package orgauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured JWT claims with capability hints.
//
// Claims are a cache of what was true at issuance time. Capability
// checks answered from claims are cheap pre-filters for routing; any
// mutating operation must go through Authorizer.Authorize, which
// re-reads the membership row.
type AuthClaims interface {
	Subject() string
	UserID() string
	OrganizationID() string
	Role() string
	Can(capability Capability) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	OrgID    string         `json:"org,omitempty"`
	UserRole string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// OrganizationID returns the organization the token was scoped to, or
// an empty string for tokens issued without an organization context.
func (c *JWTClaims) OrganizationID() string {
	return c.OrgID
}

// Role returns the membership role the token was issued with
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Can answers a capability check from the role claim alone. This is a
// hint: the membership store is the oracle.
func (c *JWTClaims) Can(capability Capability) bool {
	if c.OrgID == "" {
		return false
	}
	return Role(c.UserRole).Can(capability)
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
