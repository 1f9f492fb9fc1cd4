package orgauth

// UserStatus is the global lifecycle state of a user account. It gates
// every authentication and authorization decision before any
// organization lookup happens.
type UserStatus = string

const (
	// UserStatusPending is an invited user that has not accepted yet.
	UserStatusPending UserStatus = "pending"
	// UserStatusActive can authenticate.
	UserStatusActive UserStatus = "active"
	// UserStatusSuspended is temporarily blocked by an admin.
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusBanned is permanently blocked.
	UserStatusBanned UserStatus = "banned"
)

// EnsureStatus backfills the zero value so legacy rows behave as active.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// IsBlocked reports whether an admin has shut the account out entirely.
// Pending accounts are not blocked; they simply have not accepted yet.
func (u *User) IsBlocked() bool {
	u.EnsureStatus()
	return u.Status == UserStatusSuspended || u.Status == UserStatusBanned
}

// statusAuthError maps a user status to the auth error surfaced when the
// account cannot authenticate. Active accounts return nil.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusActive, "":
		return nil
	default:
		return ErrAccountInactive
	}
}
