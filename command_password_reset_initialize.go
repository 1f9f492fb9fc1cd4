package orgauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"ada@example.com" doc:"Account email"`
}

func (e InitializePasswordResetMessage) Type() string { return "auth.password_reset.initialize" }

func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// InitializePasswordResetResult never reveals whether the email had an
// account; an unknown address succeeds with EmailSent true.
type InitializePasswordResetResult struct {
	EmailSent bool   `json:"email_sent"`
	Warning   string `json:"warning,omitempty"`
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	config   Config
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, config Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		config:   config,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the email sender used for reset delivery.
func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit password reset events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResult, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password reset request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var (
		user  *User
		token string
	)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				// Swallow the miss so a caller cannot enumerate
				// registered addresses.
				user = nil
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user")
		}

		if !user.IsActive() {
			user = nil
			return nil
		}

		token, err = GenerateOpaqueToken(DefaultOpaqueTokenBytes)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate reset token")
		}

		expiresAt := time.Now().Add(h.config.GetPasswordResetTTL())
		if err := h.repo.Users().SetResetTokenTx(ctx, tx, user.ID, token, expiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not store reset token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	result := &InitializePasswordResetResult{EmailSent: true}

	if user == nil {
		h.logger.Debug("password reset requested for unknown or inactive email")
		return result, nil
	}

	sent := normalizeNotifier(h.notifier).SendPasswordResetEmail(ctx, user.Email, user.Name(), token)
	if !sent {
		result.EmailSent = false
		result.Warning = "reset token created but the email could not be delivered"
		h.logger.Warn("reset email delivery failed for %s", user.Email)
	}

	h.recordActivity(ctx, user, sent)

	return result, nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, user *User, sent bool) {
	activity := ActivityEvent{
		EventType: ActivityEventPasswordResetStart,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID: user.ID.String(),
		Metadata: map[string]any{
			"email_sent": sent,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, activity); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
