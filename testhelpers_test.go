package orgauth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	orgauth "github.com/scriberly/go-orgauth"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    first_name TEXT,
    last_name TEXT,
    password_hash TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    is_email_verified BOOLEAN DEFAULT FALSE,
    verification_token TEXT,
    reset_token TEXT,
    reset_token_expires_at TIMESTAMP NULL,
    login_attempts INTEGER DEFAULT 0,
    login_attempt_at TIMESTAMP NULL,
    loggedin_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateOrganizations = `CREATE TABLE organizations (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    is_active BOOLEAN DEFAULT TRUE,
    max_users INTEGER DEFAULT 0,
    max_transcription_minutes INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateMemberships = `CREATE TABLE memberships (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    organization_id TEXT NOT NULL,
    membership_role TEXT NOT NULL,
    is_active BOOLEAN DEFAULT FALSE,
    invitation_token TEXT UNIQUE,
    invited_by_id TEXT,
    invitation_created_at TIMESTAMP NULL,
    invitation_accepted_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP NULL,
    FOREIGN KEY (user_id) REFERENCES users (id),
    FOREIGN KEY (organization_id) REFERENCES organizations (id),
    CONSTRAINT uq_memberships_user_org UNIQUE (user_id, organization_id)
);`

	sqliteCreateRefreshTokens = `CREATE TABLE refresh_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    token TEXT NOT NULL UNIQUE,
    user_id TEXT NOT NULL,
    organization_id TEXT,
    issued_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    revoked_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id)
);`
)

func setupTestRepo(t *testing.T) (orgauth.RepositoryManager, *bun.DB, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, ddl := range []string{
		sqliteCreateUsers,
		sqliteCreateOrganizations,
		sqliteCreateMemberships,
		sqliteCreateRefreshTokens,
	} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return orgauth.NewRepositoryManager(bunDB), bunDB, cleanup
}

func errorHasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func testConfig() *orgauth.SimpleConfig {
	cfg := orgauth.NewConfig("test-signing-key")
	cfg.Issuer = "orgauth-test"
	cfg.ClockSkewLeeway = 0
	return cfg
}

func seedOrganization(t *testing.T, repo orgauth.RepositoryManager, slug string, maxUsers int) *orgauth.Organization {
	t.Helper()

	org, err := repo.Organizations().Create(context.Background(), &orgauth.Organization{
		ID:       uuid.New(),
		Name:     slug,
		Slug:     slug,
		Active:   true,
		MaxUsers: maxUsers,
	})
	require.NoError(t, err)

	return org
}

func seedUser(t *testing.T, repo orgauth.RepositoryManager, email, password string, status orgauth.UserStatus) *orgauth.User {
	t.Helper()

	user := &orgauth.User{
		Email:  email,
		Status: status,
	}

	if password != "" {
		hash, err := orgauth.HashPassword(password)
		require.NoError(t, err)
		user.PasswordHash = hash
	}

	created, err := repo.Users().Create(context.Background(), user)
	require.NoError(t, err)

	return created
}

func seedMembership(t *testing.T, repo orgauth.RepositoryManager, userID, orgID uuid.UUID, role orgauth.Role, active bool) *orgauth.Membership {
	t.Helper()

	record := &orgauth.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Active:         active,
	}

	created, err := repo.Memberships().Create(context.Background(), record)
	require.NoError(t, err)

	return created
}

func seedRefreshToken(t *testing.T, repo orgauth.RepositoryManager, userID, orgID uuid.UUID, expiresAt time.Time) *orgauth.RefreshToken {
	t.Helper()

	token, err := orgauth.GenerateOpaqueToken(0)
	require.NoError(t, err)

	record, err := repo.RefreshTokens().Create(context.Background(), &orgauth.RefreshToken{
		ID:             uuid.New(),
		Token:          token,
		UserID:         userID,
		OrganizationID: orgID,
		IssuedAt:       time.Now().Add(-time.Minute),
		ExpiresAt:      expiresAt,
	})
	require.NoError(t, err)

	return record
}
