package orgauth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes for the error taxonomy. The HTTP facing collaborator maps
// these to status codes; this package never decides 403 vs 404.
const (
	TextCodeInvalidCredentials        = "INVALID_CREDENTIALS"
	TextCodeAccountInactive           = "ACCOUNT_INACTIVE"
	TextCodeTokenExpired              = "TOKEN_EXPIRED"
	TextCodeTokenMalformed            = "TOKEN_MALFORMED"
	TextCodeTokenRevoked              = "TOKEN_REVOKED"
	TextCodeNotAMember                = "NOT_A_MEMBER"
	TextCodeMembershipInactive        = "MEMBERSHIP_INACTIVE"
	TextCodeInsufficientPermission    = "INSUFFICIENT_PERMISSION"
	TextCodeInvitationInvalid         = "INVITATION_INVALID"
	TextCodeInvitationExpired         = "INVITATION_EXPIRED"
	TextCodeInvitationAlreadyAccepted = "INVITATION_ALREADY_ACCEPTED"
	TextCodeAlreadyMember             = "ALREADY_MEMBER"
	TextCodeWeakPassword              = "WEAK_PASSWORD"
	TextCodeTooManyLoginAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeUserLimitReached          = "ORGANIZATION_USER_LIMIT_REACHED"
)

// ErrIdentityNotFound is the error we return for non found identities.
// It must never leave the login path as-is; callers collapse it into
// ErrInvalidCredentials to prevent account enumeration.
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from the raw token
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrNoEmptyString guards primitives that reject empty input
var ErrNoEmptyString = errors.New("empty string not allowed")

// ErrInvalidCredentials covers both "user not found" and "password
// mismatch"; the two cases are indistinguishable on purpose.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive is returned when a user exists but its status does
// not allow authentication.
var ErrAccountInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode(TextCodeTooManyLoginAttempts).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked covers refresh tokens that are revoked, unknown, or
// already rotated. One answer for all three, no oracle.
var ErrTokenRevoked = goerrors.New("token is revoked or invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

var ErrInvitationInvalid = goerrors.New("invitation token is invalid", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvitationInvalid).
	WithCode(goerrors.CodeNotFound)

var ErrInvitationExpired = goerrors.New("invitation has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvitationExpired).
	WithCode(goerrors.CodeBadRequest)

var ErrInvitationAlreadyAccepted = goerrors.New("invitation was already accepted", goerrors.CategoryConflict).
	WithTextCode(TextCodeInvitationAlreadyAccepted).
	WithCode(goerrors.CodeConflict)

var ErrAlreadyMember = goerrors.New("user is already a member of the organization", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyMember).
	WithCode(goerrors.CodeConflict)

var ErrWeakPassword = goerrors.New("password does not meet the strength policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

var ErrOrganizationUserLimit = goerrors.New("organization user limit reached", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserLimitReached).
	WithCode(goerrors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
