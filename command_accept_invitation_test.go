package orgauth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	orgauth "github.com/scriberly/go-orgauth"
)

type acceptFixture struct {
	repo     orgauth.RepositoryManager
	db       *bun.DB
	invite   *orgauth.InviteUserHandler
	accept   *orgauth.AcceptInvitationHandler
	auther   *orgauth.Auther
	notifier *stubNotifier
	sink     *recordingSink
	org      *orgauth.Organization
	admin    *orgauth.User
	cleanup  func()
}

func setupAcceptFixture(t *testing.T) *acceptFixture {
	t.Helper()

	repo, bunDB, cleanup := setupTestRepo(t)

	cfg := testConfig()
	notifier := &stubNotifier{}
	sink := &recordingSink{}

	provider := orgauth.NewUserProvider(repo.Users()).WithLogger(newQuietLogger())
	auther := orgauth.NewAuthenticator(provider, repo, cfg).WithLogger(newQuietLogger())

	invite := orgauth.NewInviteUserHandler(repo, cfg).
		WithNotifier(notifier).
		WithLogger(newQuietLogger())

	accept := orgauth.NewAcceptInvitationHandler(repo, cfg).
		WithAuthenticator(auther).
		WithNotifier(notifier).
		WithActivitySink(sink).
		WithLogger(newQuietLogger())

	org := seedOrganization(t, repo, "accept-org", 0)
	admin := seedUser(t, repo, "admin@accept.test", "s3cret-Password1", orgauth.UserStatusActive)
	seedMembership(t, repo, admin.ID, org.ID, orgauth.RoleOrganizationAdmin, true)

	return &acceptFixture{
		repo:     repo,
		db:       bunDB,
		invite:   invite,
		accept:   accept,
		auther:   auther,
		notifier: notifier,
		sink:     sink,
		org:      org,
		admin:    admin,
		cleanup:  cleanup,
	}
}

func (fx *acceptFixture) inviteEmail(t *testing.T, email string) string {
	t.Helper()

	result, err := fx.invite.Execute(context.Background(), orgauth.InviteUserMessage{
		OrganizationID: fx.org.ID,
		InviterID:      fx.admin.ID,
		Email:          email,
		Role:           string(orgauth.RoleOrganizationUser),
	})
	require.NoError(t, err)

	return result.InvitationToken
}

func TestAcceptInvitationHandler(t *testing.T) {
	t.Run("full invite accept login flow", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "grace@accept.test")

		result, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:     token,
			Password:  "br4nd-new-Password",
			FirstName: "Grace",
			LastName:  "Hopper",
		})
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, fx.org.ID, result.OrganizationID)
		assert.Equal(t, orgauth.RoleOrganizationUser, result.Role)
		assert.True(t, result.EmailSent)
		require.NotNil(t, result.Tokens, "attached authenticator logs the member in")
		assert.NotEmpty(t, result.Tokens.AccessToken)

		user, err := fx.repo.Users().GetByEmail(context.Background(), "grace@accept.test")
		require.NoError(t, err)
		assert.Equal(t, orgauth.UserStatusActive, user.Status)
		assert.True(t, user.EmailVerified)
		assert.Equal(t, "Grace", user.FirstName)

		membership, err := fx.repo.Memberships().GetByUserAndOrg(context.Background(), user.ID, fx.org.ID)
		require.NoError(t, err)
		assert.True(t, membership.Active)
		assert.NotNil(t, membership.InvitationAcceptedAt)

		// The new member can now log in with the chosen password.
		login, err := fx.auther.Login(context.Background(), "grace@accept.test", "br4nd-new-Password")
		require.NoError(t, err)
		assert.Equal(t, fx.org.ID, login.OrganizationID)
		assert.Equal(t, orgauth.RoleOrganizationUser, login.Role)

		assert.Len(t, fx.notifier.byKind("welcome"), 1)
		assert.Len(t, fx.sink.byType(orgauth.ActivityEventInvitationAccepted), 1)
	})

	t.Run("unknown token", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		_, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    "bogus-token",
			Password: "br4nd-new-Password",
		})
		require.Error(t, err)
		assert.True(t, errorHasTextCode(err, orgauth.TextCodeInvitationInvalid))
	})

	t.Run("missing token fails validation", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		_, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Password: "br4nd-new-Password",
		})
		assert.Error(t, err)
	})

	t.Run("double accept is rejected", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "eager@accept.test")

		_, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "br4nd-new-Password",
		})
		require.NoError(t, err)

		_, err = fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "another-Password-9",
		})
		require.Error(t, err)
		assert.True(t, errorHasTextCode(err, orgauth.TextCodeInvitationAlreadyAccepted))
	})

	t.Run("concurrent accepts of one token admit exactly one member", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "contested@accept.test")

		const workers = 6

		var wg sync.WaitGroup
		start := make(chan struct{})
		results := make([]*orgauth.AcceptInvitationResult, workers)
		failures := make([]error, workers)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], failures[i] = fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
					Token:    token,
					Password: "br4nd-new-Password",
				})
			}(i)
		}

		close(start)
		wg.Wait()

		winners := 0
		for i := 0; i < workers; i++ {
			if failures[i] == nil {
				winners++
				require.NotNil(t, results[i])
			} else {
				assert.True(t, errorHasTextCode(failures[i], orgauth.TextCodeInvitationAlreadyAccepted),
					"losers see an already accepted invitation, got: %v", failures[i])
			}
		}
		assert.Equal(t, 1, winners)

		membership, err := fx.repo.Memberships().GetByInvitationToken(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, membership.Active)
		require.NotNil(t, membership.InvitationAcceptedAt)
	})

	t.Run("expired invitation is rejected", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "late@accept.test")

		stale := time.Now().Add(-8 * 24 * time.Hour)
		_, err := fx.db.NewUpdate().Model((*orgauth.Membership)(nil)).
			Set("invitation_created_at = ?", stale).
			Where("invitation_token = ?", token).
			Exec(context.Background())
		require.NoError(t, err)

		_, err = fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "br4nd-new-Password",
		})
		require.Error(t, err)
		assert.True(t, errorHasTextCode(err, orgauth.TextCodeInvitationExpired))
	})

	t.Run("weak password blocks acceptance", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "weak@accept.test")

		_, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "short",
		})
		require.Error(t, err)
		assert.True(t, errorHasTextCode(err, orgauth.TextCodeWeakPassword))

		// The invitation is still claimable afterwards.
		_, err = fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "long-enough-Password1",
		})
		assert.NoError(t, err)
	})

	t.Run("existing user keeps their password", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		veteran := seedUser(t, fx.repo, "veteran@accept.test", "old-Password-77", orgauth.UserStatusActive)
		token := fx.inviteEmail(t, "veteran@accept.test")

		result, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token: token,
		})
		require.NoError(t, err, "no password needed when the account already has one")
		assert.Equal(t, veteran.ID, result.UserID)

		found, err := fx.repo.Users().GetByID(context.Background(), veteran.ID.String())
		require.NoError(t, err)
		assert.NoError(t, orgauth.ComparePasswordAndHash("old-Password-77", found.PasswordHash),
			"existing credentials are untouched")
		assert.True(t, found.EmailVerified,
			"redeeming the emailed token verifies the address")
	})

	t.Run("welcome email failure degrades to a warning", func(t *testing.T) {
		fx := setupAcceptFixture(t)
		defer fx.cleanup()

		token := fx.inviteEmail(t, "bouncy@accept.test")
		fx.notifier.fail = true

		result, err := fx.accept.Execute(context.Background(), orgauth.AcceptInvitationMessage{
			Token:    token,
			Password: "br4nd-new-Password",
		})
		require.NoError(t, err)
		assert.False(t, result.EmailSent)
		assert.NotEmpty(t, result.Warning)
	})
}
