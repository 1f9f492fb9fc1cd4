package orgauth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. It exists independently of any
// organization; invited users are created here with no password hash
// until they accept their invitation.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName         string     `bun:"first_name" json:"first_name,omitempty"`
	LastName          string     `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	Status            UserStatus `bun:"status,notnull" json:"status,omitempty"`
	EmailVerified     bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	VerificationToken string     `bun:"verification_token,nullzero" json:"-"`
	ResetToken        string     `bun:"reset_token,nullzero" json:"-"`
	ResetTokenExpires *time.Time `bun:"reset_token_expires_at,nullzero" json:"-"`
	LoginAttempts     int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt    *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LoggedInAt        *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Name joins first and last name, trimming when either is empty.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPassword reports whether the user has ever set credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Organization is the tenant boundary.
type Organization struct {
	bun.BaseModel            `bun:"table:organizations,alias:org"`
	ID                       uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                     string     `bun:"name,notnull" json:"name,omitempty"`
	Slug                     string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	Active                   bool       `bun:"is_active" json:"is_active,omitempty"`
	MaxUsers                 int        `bun:"max_users" json:"max_users,omitempty"`
	MaxTranscriptionMinutes  int        `bun:"max_transcription_minutes" json:"max_transcription_minutes,omitempty"`
	CreatedAt                *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt                *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Membership binds a User to an Organization with a Role. It is the
// authorization unit: exactly one row per (user, organization) pair.
// A row with an invitation token and no accepted-at timestamp is a
// pending invitation and grants nothing.
type Membership struct {
	bun.BaseModel        `bun:"table:memberships,alias:mbr"`
	ID                   uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID               uuid.UUID  `bun:"user_id,notnull,type:uuid,unique:uq_memberships_user_org" json:"user_id,omitempty"`
	OrganizationID       uuid.UUID  `bun:"organization_id,notnull,type:uuid,unique:uq_memberships_user_org" json:"organization_id,omitempty"`
	Role                 Role       `bun:"membership_role,notnull" json:"membership_role,omitempty"`
	Active               bool       `bun:"is_active" json:"is_active,omitempty"`
	InvitationToken      string     `bun:"invitation_token,nullzero,unique" json:"-"`
	InvitedByID          *uuid.UUID `bun:"invited_by_id,nullzero,type:uuid" json:"invited_by_id,omitempty"`
	InvitationCreatedAt  *time.Time `bun:"invitation_created_at,nullzero" json:"invitation_created_at,omitempty"`
	InvitationAcceptedAt *time.Time `bun:"invitation_accepted_at,nullzero" json:"invitation_accepted_at,omitempty"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt            *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsPending reports whether the membership is an unaccepted invitation.
func (m *Membership) IsPending() bool {
	return m.InvitationToken != "" && m.InvitationAcceptedAt == nil
}

// RefreshToken is the rotation unit. Rows are only ever mutated to set
// revoked_at; rotation creates a new row and revokes the old one.
type RefreshToken struct {
	bun.BaseModel  `bun:"table:refresh_tokens,alias:rtk"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token          string     `bun:"token,notnull,unique" json:"-"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	OrganizationID uuid.UUID  `bun:"organization_id,nullzero,type:uuid" json:"organization_id,omitempty"`
	IssuedAt       time.Time  `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	ExpiresAt      time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt      *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsExpired checks if the refresh token has expired
func (r *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsUsable reports whether the token can still be exchanged: not
// revoked and not expired.
func (r *RefreshToken) IsUsable(now time.Time) bool {
	return r.RevokedAt == nil && !r.IsExpired(now)
}
