package orgauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// immutableClaimsSnapshot records the claims a decorator must not touch.
// The org and role claims are included: a decorator that could rewrite
// them would be able to mint cross-tenant tokens.
type immutableClaimsSnapshot struct {
	subject     string
	issuer      string
	uid         string
	orgID       string
	role        string
	audience    []string
	issuedAt    time.Time
	hasIssuedAt bool
	expiresAt   time.Time
	hasExpires  bool
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	var audienceCopy []string
	if len(claims.RegisteredClaims.Audience) > 0 {
		audienceCopy = append(audienceCopy, claims.RegisteredClaims.Audience...)
	}

	snap := immutableClaimsSnapshot{
		subject:  claims.RegisteredClaims.Subject,
		issuer:   claims.RegisteredClaims.Issuer,
		uid:      claims.UID,
		orgID:    claims.OrgID,
		role:     claims.UserRole,
		audience: audienceCopy,
	}

	if claims.RegisteredClaims.IssuedAt != nil {
		snap.issuedAt = claims.RegisteredClaims.IssuedAt.Time
		snap.hasIssuedAt = true
	}
	if claims.RegisteredClaims.ExpiresAt != nil {
		snap.expiresAt = claims.RegisteredClaims.ExpiresAt.Time
		snap.hasExpires = true
	}

	return snap
}

func (s immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	if claims.RegisteredClaims.Subject != s.subject {
		return fmt.Errorf("claims decorator must not modify subject")
	}
	if claims.RegisteredClaims.Issuer != s.issuer {
		return fmt.Errorf("claims decorator must not modify issuer")
	}
	if claims.UID != s.uid {
		return fmt.Errorf("claims decorator must not modify uid")
	}
	if claims.OrgID != s.orgID {
		return fmt.Errorf("claims decorator must not modify organization claim")
	}
	if claims.UserRole != s.role {
		return fmt.Errorf("claims decorator must not modify role claim")
	}
	if err := s.validateAudience(claims.RegisteredClaims.Audience); err != nil {
		return err
	}
	if err := s.validateTime("issued at", claims.RegisteredClaims.IssuedAt, s.issuedAt, s.hasIssuedAt); err != nil {
		return err
	}
	if err := s.validateTime("expiration", claims.RegisteredClaims.ExpiresAt, s.expiresAt, s.hasExpires); err != nil {
		return err
	}
	return nil
}

func (s immutableClaimsSnapshot) validateAudience(audience jwt.ClaimStrings) error {
	if len(audience) != len(s.audience) {
		return fmt.Errorf("claims decorator must not modify audience")
	}
	for i, aud := range audience {
		if aud != s.audience[i] {
			return fmt.Errorf("claims decorator must not modify audience")
		}
	}
	return nil
}

func (s immutableClaimsSnapshot) validateTime(label string, actual *jwt.NumericDate, expected time.Time, present bool) error {
	if !present {
		if actual != nil {
			return fmt.Errorf("claims decorator must not set %s", label)
		}
		return nil
	}
	if actual == nil || !actual.Time.Equal(expected) {
		return fmt.Errorf("claims decorator must not modify %s", label)
	}
	return nil
}
