package orgauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type InviteUserMessage struct {
	OrganizationID uuid.UUID `json:"organization_id" doc:"Organization the user is invited into"`
	InviterID      uuid.UUID `json:"inviter_id" doc:"Member sending the invitation"`
	Email          string    `json:"email" example:"ada@example.com" doc:"Invitee email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           string    `json:"role" example:"organization_user" doc:"Role granted on acceptance"`
	Message        string    `json:"message" doc:"Optional note included in the invitation email"`
}

func (e InviteUserMessage) Type() string { return "membership.invite_user" }

func (e InviteUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Role, validation.Required, validation.By(func(value any) error {
			role, _ := value.(string)
			if _, ok := ParseRole(role); !ok {
				return goerrors.New("must be a valid role", goerrors.CategoryValidation)
			}
			return nil
		})),
		validation.Field(&e.OrganizationID, validation.Required, validation.By(requireUUID)),
		validation.Field(&e.InviterID, validation.Required, validation.By(requireUUID)),
	)
}

func requireUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return goerrors.New("must be a non nil uuid", goerrors.CategoryValidation)
	}
	return nil
}

// InviteUserResult reports what the invitation produced. EmailSent is
// best effort: a failed send leaves the invitation in place and comes
// back as a warning, never as an error.
type InviteUserResult struct {
	MembershipID    uuid.UUID `json:"membership_id"`
	UserID          uuid.UUID `json:"user_id"`
	InvitationToken string    `json:"-"`
	EmailSent       bool      `json:"email_sent"`
	Warning         string    `json:"warning,omitempty"`
}

type InviteUserHandler struct {
	repo     RepositoryManager
	config   Config
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewInviteUserHandler creates a handler with sane defaults.
func NewInviteUserHandler(repo RepositoryManager, config Config) *InviteUserHandler {
	return &InviteUserHandler{
		repo:     repo,
		config:   config,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the email sender used for invitation delivery.
func (h *InviteUserHandler) WithNotifier(n Notifier) *InviteUserHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit invitation events.
func (h *InviteUserHandler) WithActivitySink(sink ActivitySink) *InviteUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InviteUserHandler) WithLogger(logger Logger) *InviteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InviteUserHandler) Execute(ctx context.Context, event InviteUserMessage) (*InviteUserResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteUserHandler) execute(ctx context.Context, event InviteUserMessage) (*InviteUserResult, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid invitation request")
	}

	role, _ := ParseRole(event.Role)

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var (
		org        *Organization
		inviter    *User
		membership *Membership
		invitee    *User
		token      string
	)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		org, err = h.repo.Organizations().GetByID(ctx, event.OrganizationID.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("organization not found", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load organization")
		}

		if !org.Active {
			return goerrors.New("organization is not active", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest)
		}

		inviterMembership, err := h.repo.Memberships().GetByUserAndOrgTx(ctx, tx, event.InviterID, event.OrganizationID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return Deny(DenyNotAMember).Err()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load inviter membership")
		}

		if inviterMembership.IsPending() || !inviterMembership.Active {
			return Deny(DenyMembershipInactive).Err()
		}

		if !inviterMembership.Role.Can(CapabilityManageUsers) {
			return Deny(DenyInsufficientPermission).Err()
		}

		inviter, err = h.repo.Users().GetByID(ctx, event.InviterID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load inviter")
		}

		if org.MaxUsers > 0 {
			count, err := h.repo.Memberships().CountActiveForOrganizationTx(ctx, tx, event.OrganizationID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not count organization members")
			}
			if count >= org.MaxUsers {
				return ErrOrganizationUserLimit
			}
		}

		invitee, err = h.repo.Users().GetOrCreateTx(ctx, tx, &User{
			Email:     event.Email,
			FirstName: event.FirstName,
			LastName:  event.LastName,
			Status:    UserStatusPending,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create invited user")
		}

		existing, err := h.repo.Memberships().GetByUserAndOrgTx(ctx, tx, invitee.ID, event.OrganizationID)
		if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check existing membership")
		}

		token, err = GenerateOpaqueToken(DefaultOpaqueTokenBytes)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate invitation token")
		}

		if existing != nil {
			state := InvitationStateOf(existing, time.Now(), h.config.GetInvitationTTL())
			if state != InvitationStateExpired {
				return goerrors.New(ErrAlreadyMember.Message, ErrAlreadyMember.Category).
					WithTextCode(TextCodeAlreadyMember).
					WithCode(goerrors.CodeConflict).
					WithMetadata(map[string]any{
						"invitation_state": string(state),
					})
			}

			// Expired invitation: reissue on the same row.
			now := time.Now()
			existing.InvitationToken = token
			existing.InvitationCreatedAt = &now
			existing.InvitedByID = &event.InviterID
			existing.Role = role

			membership, err = h.repo.Memberships().UpdateTx(ctx, tx, existing)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not reissue invitation")
			}

			return nil
		}

		inviterID := event.InviterID
		membership, err = h.repo.Memberships().CreatePendingTx(ctx, tx, &Membership{
			ID:              uuid.New(),
			UserID:          invitee.ID,
			OrganizationID:  event.OrganizationID,
			Role:            role,
			InvitationToken: token,
			InvitedByID:     &inviterID,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create invitation")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user invitation transaction failed")
	}

	result := &InviteUserResult{
		MembershipID:    membership.ID,
		UserID:          invitee.ID,
		InvitationToken: token,
		EmailSent:       true,
	}

	sent := normalizeNotifier(h.notifier).SendInvitationEmail(
		ctx, invitee.Email, invitee.Name(), org.Name, inviter.Name(), token, event.Message,
	)
	if !sent {
		result.EmailSent = false
		result.Warning = "invitation created but the email could not be delivered"
		h.logger.Warn("invitation email delivery failed for %s", invitee.Email)
	}

	h.recordActivity(ctx, event, invitee, membership, sent)

	return result, nil
}

func (h *InviteUserHandler) recordActivity(ctx context.Context, event InviteUserMessage, invitee *User, membership *Membership, sent bool) {
	activity := ActivityEvent{
		EventType: ActivityEventInvitationSent,
		Actor: ActorRef{
			ID:   event.InviterID.String(),
			Type: "user",
		},
		UserID: invitee.ID.String(),
		Metadata: map[string]any{
			"organization_id": event.OrganizationID.String(),
			"membership_id":   membership.ID.String(),
			"role":            event.Role,
			"email_sent":      sent,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, activity); err != nil {
		h.logger.Warn("activity sink error during invitation: %v", err)
	}
}
