package orgauth

import (
	"context"

	"github.com/scriberly/go-orgauth/middleware/authware"
)

// ValidationListener aliases the authware listener so consumers can use
// orgauth helpers directly.
type ValidationListener = authware.ValidationListener

// ContextEnricherAdapter adapts authware.AuthClaims to orgauth.AuthClaims and
// stores the claims in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims authware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// TokenValidatorAdapter bridges a TokenService into the middleware's
// validator interface.
func TokenValidatorAdapter(ts TokenService) authware.TokenValidator {
	return authware.TokenValidatorFunc(func(tokenString string) (authware.AuthClaims, error) {
		claims, err := ts.Validate(tokenString)
		if err != nil {
			return nil, err
		}

		mwClaims, ok := claims.(authware.AuthClaims)
		if !ok {
			return nil, ErrUnableToMapClaims
		}

		return mwClaims, nil
	})
}

// CapabilityCheckerAdapter answers middleware capability checks from
// the role claim. A hint only; mutating routes should add an
// authorizer backed check.
func CapabilityCheckerAdapter(claims authware.AuthClaims, capability string) bool {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return false
	}

	parsed, ok := ParseCapability(capability)
	if !ok {
		return false
	}

	return authClaims.Can(parsed)
}

// RegisterValidationListeners appends listeners to an authware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *authware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
