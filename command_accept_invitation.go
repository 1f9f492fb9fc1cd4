package orgauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AcceptInvitationMessage struct {
	Token     string `json:"token" doc:"Invitation token from the email link"`
	Password  string `json:"password" doc:"Initial password, required for first time users"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (e AcceptInvitationMessage) Type() string { return "membership.accept_invitation" }

func (e AcceptInvitationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Token, validation.Required),
	)
}

// AcceptInvitationResult is returned on a successful acceptance. When
// an authenticator is attached the new member is logged in on the spot
// and Tokens carries the pair.
type AcceptInvitationResult struct {
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Role           Role       `json:"role"`
	Tokens         *TokenPair `json:"tokens,omitempty"`
	EmailSent      bool       `json:"email_sent"`
	Warning        string     `json:"warning,omitempty"`
}

type AcceptInvitationHandler struct {
	repo     RepositoryManager
	config   Config
	auther   *Auther
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewAcceptInvitationHandler creates a handler with sane defaults.
func NewAcceptInvitationHandler(repo RepositoryManager, config Config) *AcceptInvitationHandler {
	return &AcceptInvitationHandler{
		repo:     repo,
		config:   config,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithAuthenticator enables the log-the-member-in-on-accept behavior.
func (h *AcceptInvitationHandler) WithAuthenticator(a *Auther) *AcceptInvitationHandler {
	h.auther = a
	return h
}

// WithNotifier sets the email sender used for the welcome email.
func (h *AcceptInvitationHandler) WithNotifier(n Notifier) *AcceptInvitationHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit acceptance events.
func (h *AcceptInvitationHandler) WithActivitySink(sink ActivitySink) *AcceptInvitationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *AcceptInvitationHandler) WithLogger(logger Logger) *AcceptInvitationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AcceptInvitationHandler) Execute(ctx context.Context, event AcceptInvitationMessage) (*AcceptInvitationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation acceptance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AcceptInvitationHandler) execute(ctx context.Context, event AcceptInvitationMessage) (*AcceptInvitationResult, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid acceptance request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var (
		membership *Membership
		user       *User
		org        *Organization
	)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		membership, err = h.repo.Memberships().GetByInvitationTokenTx(ctx, tx, event.Token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvitationInvalid
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load invitation")
		}

		now := time.Now()
		switch InvitationStateOf(membership, now, h.config.GetInvitationTTL()) {
		case InvitationStateAccepted:
			return ErrInvitationAlreadyAccepted
		case InvitationStateExpired:
			return ErrInvitationExpired
		}

		user, err = h.repo.Users().GetByID(ctx, membership.UserID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load invited user")
		}

		org, err = h.repo.Organizations().GetByID(ctx, membership.OrganizationID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load organization")
		}

		var passwordHash string
		if !user.HasPassword() {
			policy := PasswordPolicyFromConfig(h.config)
			if err := ValidatePasswordStrength(event.Password, policy); err != nil {
				return err
			}

			passwordHash, err = HashPassword(event.Password)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
		}

		// First write wins; a concurrent accept of the same token sees
		// zero affected rows here.
		won, err := h.repo.Memberships().ClaimInvitationTx(ctx, tx, membership.ID, now)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not claim invitation")
		}

		if !won {
			return ErrInvitationAlreadyAccepted
		}

		if passwordHash != "" {
			if err := h.repo.Users().SetCredentialsTx(ctx, tx, user.ID, passwordHash); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not set credentials")
			}
			user.Status = UserStatusActive
		} else if !user.EmailVerified {
			// Redeeming the emailed token proves mailbox control for
			// existing accounts as well.
			if err := h.repo.Users().MarkEmailVerifiedTx(ctx, tx, user.ID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not mark email verified")
			}
		}
		user.EmailVerified = true

		if event.FirstName != "" || event.LastName != "" {
			record := &User{
				ID:        user.ID,
				FirstName: event.FirstName,
				LastName:  event.LastName,
			}
			if _, err := h.repo.Users().UpdateTx(ctx, tx, record); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update user name")
			}
			if event.FirstName != "" {
				user.FirstName = event.FirstName
			}
			if event.LastName != "" {
				user.LastName = event.LastName
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invitation acceptance transaction failed")
	}

	result := &AcceptInvitationResult{
		UserID:         user.ID,
		OrganizationID: membership.OrganizationID,
		Role:           membership.Role,
		EmailSent:      true,
	}

	if h.auther != nil {
		pair, err := h.auther.IssueTokenPair(ctx, NewIdentityFromUser(user), user.ID, membership.OrganizationID, membership.Role)
		if err != nil {
			h.logger.Error("could not issue tokens after acceptance: %v", err)
			result.Warning = "invitation accepted but login tokens could not be issued"
		} else {
			result.Tokens = pair
		}
	}

	sent := normalizeNotifier(h.notifier).SendWelcomeEmail(ctx, user.Email, user.Name(), org.Name)
	if !sent {
		result.EmailSent = false
		if result.Warning == "" {
			result.Warning = "invitation accepted but the welcome email could not be delivered"
		}
		h.logger.Warn("welcome email delivery failed for %s", user.Email)
	}

	h.recordActivity(ctx, user, membership, sent)

	return result, nil
}

func (h *AcceptInvitationHandler) recordActivity(ctx context.Context, user *User, membership *Membership, sent bool) {
	activity := ActivityEvent{
		EventType: ActivityEventInvitationAccepted,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID: user.ID.String(),
		Metadata: map[string]any{
			"organization_id": membership.OrganizationID.String(),
			"membership_id":   membership.ID.String(),
			"role":            string(membership.Role),
			"email_sent":      sent,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, activity); err != nil {
		h.logger.Warn("activity sink error during acceptance: %v", err)
	}
}
