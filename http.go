package orgauth

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/scriberly/go-orgauth/middleware/authware"
)

// LoginRequest is the payload for the login route.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the payload for the token refresh route. The access
// token rides along as an optional organization hint for legacy refresh
// rows; the refresh token alone decides whether the exchange happens.
type RefreshRequest struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token"`
}

// RouteAuthenticator wires the authenticator and authorizer into
// go-router handlers and middleware.
type RouteAuthenticator struct {
	auth         *Auther
	authorizer   *Authorizer
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, authorizer *Authorizer, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		cfg:        cfg,
		auth:       auther,
		authorizer: authorizer,
		Logger:     defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// ProtectedRoute validates the bearer token and stores the claims in
// both the router locals and the request context.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return authware.New(authware.Config{
		ErrorHandler:    a.ErrorHandler,
		ContextKey:      a.cfg.GetContextKey(),
		TokenValidator:  TokenValidatorAdapter(a.auth.TokenService()),
		ContextEnricher: ContextEnricherAdapter,
	})
}

// CapabilityRoute is ProtectedRoute plus a claims-level capability
// filter. Cheap but hint based; pair with RequireCapability on routes
// that mutate state.
func (a *RouteAuthenticator) CapabilityRoute(capability Capability) router.MiddlewareFunc {
	return authware.New(authware.Config{
		ErrorHandler:       a.ErrorHandler,
		ContextKey:         a.cfg.GetContextKey(),
		TokenValidator:     TokenValidatorAdapter(a.auth.TokenService()),
		ContextEnricher:    ContextEnricherAdapter,
		RequiredCapability: string(capability),
		CapabilityChecker:  CapabilityCheckerAdapter,
	})
}

// RequireCapability authorizes against the stored membership row, not
// the token. Runs after ProtectedRoute so the claims are in the locals.
func (a *RouteAuthenticator) RequireCapability(capability Capability) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, a.cfg.GetContextKey())
			if !ok {
				return a.ErrorHandler(ctx, ErrUnableToFindSession)
			}

			userID, err := uuid.Parse(claims.UserID())
			if err != nil {
				return a.ErrorHandler(ctx, ErrUnableToMapClaims)
			}

			orgID, err := uuid.Parse(claims.OrganizationID())
			if err != nil {
				return a.ErrorHandler(ctx, Deny(DenyNotAMember).Err())
			}

			if a.authorizer == nil {
				return a.ErrorHandler(ctx, errors.New("no authorizer configured", errors.CategoryInternal))
			}

			if err := a.authorizer.Authorized(ctx.Context(), userID, orgID, capability); err != nil {
				return a.ErrorHandler(ctx, err)
			}

			return ctx.Next()
		}
	}
}

// Login authenticates the payload and responds with the token pair.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginRequest) error {
	result, err := a.auth.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// Refresh exchanges a refresh token for a fresh pair.
func (a *RouteAuthenticator) Refresh(ctx router.Context, payload RefreshRequest) error {
	pair, err := a.auth.RefreshTokens(ctx.Context(), payload.AccessToken, payload.RefreshToken)
	if err != nil {
		a.Logger.Error("Refresh error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// Logout revokes the caller's refresh tokens. Requires ProtectedRoute.
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.cfg.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return a.ErrorHandler(ctx, ErrUnableToMapClaims)
	}

	if err := a.auth.Logout(ctx.Context(), userID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(router.StatusNoContent).SendString("")
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}
	}

	a.Logger.Info(
		"Middleware error handler: %s category=%s text_code=%s",
		richErr.Message,
		richErr.Category,
		richErr.TextCode,
	)

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	return c.JSON(status, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
