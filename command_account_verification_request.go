package orgauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RequestAccountVerificationMessage struct {
	Email string `json:"email" example:"ada@example.com" doc:"Account email"`
}

func (e RequestAccountVerificationMessage) Type() string { return "auth.verification.request" }

func (e RequestAccountVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type ConfirmAccountVerificationMessage struct {
	Token string `json:"token" doc:"Verification token from the email link"`
}

func (e ConfirmAccountVerificationMessage) Type() string { return "auth.verification.confirm" }

type AccountVerificationHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewAccountVerificationHandler creates a handler with sane defaults.
func NewAccountVerificationHandler(repo RepositoryManager) *AccountVerificationHandler {
	return &AccountVerificationHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithNotifier sets the email sender used for verification delivery.
func (h *AccountVerificationHandler) WithNotifier(n Notifier) *AccountVerificationHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit verification events.
func (h *AccountVerificationHandler) WithActivitySink(sink ActivitySink) *AccountVerificationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *AccountVerificationHandler) WithLogger(logger Logger) *AccountVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Request stores a fresh verification token for the account and mails
// it out. Unknown addresses succeed silently.
func (h *AccountVerificationHandler) Request(ctx context.Context, event RequestAccountVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.request(ctx, event)
	}
}

func (h *AccountVerificationHandler) request(ctx context.Context, event RequestAccountVerificationMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification request")
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
				user = nil
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user")
		}

		if user.EmailVerified {
			user = nil
			return nil
		}

		token, err = GenerateOpaqueToken(DefaultOpaqueTokenBytes)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not generate verification token")
		}

		_, err = tx.NewRaw(`
			UPDATE "users" AS "usr"
			SET
				"verification_token" = ?
			WHERE
				("usr".id = ?)
				AND "usr"."deleted_at" IS NULL;
		`, token, user.ID).Exec(ctx)

		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification request transaction failed")
	}

	if user == nil {
		return nil
	}

	if sent := normalizeNotifier(h.notifier).SendVerificationEmail(ctx, user.Email, user.Name(), token); !sent {
		h.logger.Warn("verification email delivery failed for %s", user.Email)
	}

	return nil
}

// Confirm marks the account's email verified if the token matches.
func (h *AccountVerificationHandler) Confirm(ctx context.Context, event ConfirmAccountVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification confirmation",
		)
	default:
		return h.confirm(ctx, event)
	}
}

func (h *AccountVerificationHandler) confirm(ctx context.Context, event ConfirmAccountVerificationMessage) error {
	if event.Token == "" {
		return goerrors.New("verification token is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user, err = h.repo.Users().GetByVerificationToken(ctx, event.Token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return goerrors.New("invalid verification token", goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve verification request")
		}

		_, err = tx.NewRaw(`
			UPDATE "users" AS "usr"
			SET
				"is_email_verified" = TRUE,
				"verification_token" = NULL
			WHERE
				("usr".id = ?)
				AND "usr"."deleted_at" IS NULL;
		`, user.ID).Exec(ctx)

		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification confirmation transaction failed")
	}

	activity := ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, activity); err != nil {
		h.logger.Warn("activity sink error during verification: %v", err)
	}

	return nil
}
