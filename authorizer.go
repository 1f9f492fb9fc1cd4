package orgauth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DenyReason explains why an authorization check failed. The order the
// checks run in is fixed so a denied caller learns as little as
// possible: account problems surface before membership problems, and
// membership problems before permission problems.
type DenyReason string

const (
	DenyUserInactive           DenyReason = "user_inactive"
	DenyNotAMember             DenyReason = "not_a_member"
	DenyMembershipInactive     DenyReason = "membership_inactive"
	DenyInsufficientPermission DenyReason = "insufficient_permission"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Role    Role
}

// Allow is the single allowed decision.
func Allow(role Role) Decision {
	return Decision{Allowed: true, Role: role}
}

// Deny builds a denied decision with the given reason.
func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err maps a denied decision onto the error taxonomy. Allowed
// decisions have no error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}

	switch d.Reason {
	case DenyUserInactive:
		return ErrAccountInactive
	case DenyNotAMember:
		return errors.New("user is not a member of the organization", errors.CategoryAuthz).
			WithTextCode(TextCodeNotAMember).
			WithCode(errors.CodeForbidden)
	case DenyMembershipInactive:
		return errors.New("membership is not active", errors.CategoryAuthz).
			WithTextCode(TextCodeMembershipInactive).
			WithCode(errors.CodeForbidden)
	default:
		return errors.New("role does not grant the required capability", errors.CategoryAuthz).
			WithTextCode(TextCodeInsufficientPermission).
			WithCode(errors.CodeForbidden)
	}
}

// Authorizer answers "may this user perform this capability in this
// organization". It always consults the stored membership row; role
// claims inside a token are treated as hints only, so deactivating a
// membership takes effect on the next check rather than at token
// expiry.
type Authorizer struct {
	users       Users
	memberships Memberships
	logger      Logger
}

func NewAuthorizer(users Users, memberships Memberships) *Authorizer {
	return &Authorizer{
		users:       users,
		memberships: memberships,
		logger:      defLogger{},
	}
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Authorize runs the four checks in their fixed order: user status,
// membership existence, membership active, role capability.
func (a *Authorizer) Authorize(ctx context.Context, userID, orgID uuid.UUID, capability Capability) (Decision, error) {
	user, err := a.users.GetByID(ctx, userID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return Deny(DenyUserInactive), nil
		}
		return Decision{}, errors.Wrap(err, errors.CategoryInternal, "failed to load user for authorization")
	}

	// Suspended and banned accounts are denied outright. Pending
	// accounts fall through: a freshly invited user is judged by the
	// membership row, which is still inactive until acceptance.
	if user.IsBlocked() {
		return Deny(DenyUserInactive), nil
	}

	membership, err := a.memberships.GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.IsNotFound(err) {
			return Deny(DenyNotAMember), nil
		}
		return Decision{}, errors.Wrap(err, errors.CategoryInternal, "failed to load membership for authorization")
	}

	// Pending invitation rows carry Active=false, so unaccepted
	// invitations land here too.
	if !membership.Active {
		return Deny(DenyMembershipInactive), nil
	}

	if !membership.Role.Can(capability) {
		a.logger.Debug("authorization denied user=%s org=%s role=%s capability=%s", userID, orgID, membership.Role, capability)
		return Deny(DenyInsufficientPermission), nil
	}

	return Allow(membership.Role), nil
}

// Authorized is the error-shaped variant of Authorize for callers that
// only want pass/fail.
func (a *Authorizer) Authorized(ctx context.Context, userID, orgID uuid.UUID, capability Capability) error {
	decision, err := a.Authorize(ctx, userID, orgID, capability)
	if err != nil {
		return err
	}
	return decision.Err()
}
