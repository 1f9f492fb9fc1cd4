package orgauth

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenPair is what a successful login or refresh hands back: a signed
// access token and the opaque refresh token that can replace it.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResult carries the token pair plus the organization scope the
// access token was issued for.
type LoginResult struct {
	TokenPair
	Identity       Identity  `json:"-"`
	OrganizationID uuid.UUID `json:"organization_id,omitempty"`
	Role           Role      `json:"role,omitempty"`
}

type Auther struct {
	provider        IdentityProvider
	repo            RepositoryManager
	signingKey      []byte
	refreshTTL      time.Duration
	issuer          string
	audience        []string
	accessTTL       time.Duration
	logger          Logger
	tokenService    TokenService
	tokenValidator  TokenValidator
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(opts, defLogger{})

	return &Auther{
		provider:        provider,
		repo:            repo,
		signingKey:      []byte(opts.GetSigningKey()),
		refreshTTL:      opts.GetRefreshTokenTTL(),
		accessTTL:       opts.GetAccessTokenTTL(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClaimsDecorator configures a ClaimsDecorator for enriching JWTs.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token pair scoped to the
// user's primary organization membership. Unknown emails and wrong
// passwords both come back as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", loginFailureMetadata(identifier, collapseCredentialError(err)))
		return nil, collapseCredentialError(err)
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", loginFailureMetadata(identifier, ErrInvalidCredentials))
		return nil, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity carries a non uuid id")
	}

	orgID, role, err := s.primaryMembership(ctx, userID)
	if err != nil {
		s.logger.Error("Login failed to resolve memberships: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), loginFailureMetadata(identifier, err))
		return nil, err
	}

	pair, err := s.IssueTokenPair(ctx, identity, userID, orgID, role)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), loginFailureMetadata(identifier, err))
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier":      identifier,
		"organization_id": orgID.String(),
	})

	return &LoginResult{
		TokenPair:      *pair,
		Identity:       identity,
		OrganizationID: orgID,
		Role:           role,
	}, nil
}

// RefreshTokens rotates a refresh token: the old token is revoked and a
// new pair issued in one transaction. A token that was already rotated,
// revoked, or never existed fails with ErrTokenRevoked; two concurrent
// exchanges of the same token produce exactly one winner.
func (s *Auther) RefreshTokens(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	row, err := s.repo.RefreshTokens().GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.IsNotFound(err) {
			s.denyRefresh(ctx, "", "unknown token")
			return nil, ErrTokenRevoked
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load refresh token")
	}

	now := time.Now()
	if row.RevokedAt != nil {
		s.denyRefresh(ctx, row.UserID.String(), "token revoked")
		return nil, ErrTokenRevoked
	}
	if row.IsExpired(now) {
		s.denyRefresh(ctx, row.UserID.String(), "token expired")
		return nil, ErrTokenExpired
	}

	user, err := s.repo.Users().GetByID(ctx, row.UserID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			s.denyRefresh(ctx, row.UserID.String(), "user gone")
			return nil, ErrTokenRevoked
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for refresh")
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		s.denyRefresh(ctx, row.UserID.String(), "user inactive")
		return nil, err
	}

	orgID, role, err := s.refreshScope(ctx, row, accessToken, user.ID)
	if err != nil {
		s.denyRefresh(ctx, row.UserID.String(), "membership no longer valid")
		return nil, err
	}

	identity := NewIdentityFromUser(user)

	var pair *TokenPair
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		won, err := s.repo.RefreshTokens().ClaimTx(ctx, tx, row.ID, now)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to claim refresh token")
		}

		if !won {
			return ErrTokenRevoked
		}

		pair, err = s.issueTokenPairTx(ctx, tx, identity, user.ID, orgID, role)
		return err
	})

	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			s.denyRefresh(ctx, row.UserID.String(), "lost rotation race")
		}
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), map[string]any{
		"organization_id": orgID.String(),
	})

	return pair, nil
}

// Logout revokes every outstanding refresh token for the user. Access
// tokens already issued stay valid until they expire.
func (s *Auther) Logout(ctx context.Context, userID uuid.UUID) error {
	revoked, err := s.repo.RefreshTokens().RevokeAllForUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh tokens")
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: userID.String(), Type: "user"}, userID.String(), map[string]any{
		"revoked": revoked,
	})

	return nil
}

// SweepRefreshTokens deletes refresh token rows that expired more than
// retain ago. Meant to be called from a periodic job; a zero retain
// sweeps everything already expired.
func (s *Auther) SweepRefreshTokens(ctx context.Context, retain time.Duration) (int, error) {
	cutoff := time.Now().Add(-retain)

	swept, err := s.repo.RefreshTokens().SweepExpired(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to sweep refresh tokens")
	}

	if swept > 0 {
		s.emitAuthEvent(ctx, ActivityEventRefreshTokenSweep, ActorRef{Type: "system"}, "", map[string]any{
			"swept": swept,
		})
	}

	return swept, nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	user, err := s.repo.Users().GetByID(ctx, session.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromSession user lookup failed: %v", err)
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

func (s Auther) SessionFromToken(raw string) (Session, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %v", err)
		return nil, err
	}

	return session, nil
}

// IssueTokenPair mints an access token for the given membership scope
// and persists a fresh refresh token. Used by login and by the
// invitation accept flow, which logs the new member in directly.
func (s *Auther) IssueTokenPair(ctx context.Context, identity Identity, userID, orgID uuid.UUID, role Role) (*TokenPair, error) {
	pair, record, err := s.mintTokenPair(ctx, identity, userID, orgID, role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.RefreshTokens().Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return pair, nil
}

func (s *Auther) issueTokenPairTx(ctx context.Context, tx bun.IDB, identity Identity, userID, orgID uuid.UUID, role Role) (*TokenPair, error) {
	pair, record, err := s.mintTokenPair(ctx, identity, userID, orgID, role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.RefreshTokens().CreateTx(ctx, tx, record); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return pair, nil
}

func (s *Auther) mintTokenPair(ctx context.Context, identity Identity, userID, orgID uuid.UUID, role Role) (*TokenPair, *RefreshToken, error) {
	access, expiresAt, err := s.generateJWT(ctx, identity, orgID, role)
	if err != nil {
		return nil, nil, err
	}

	opaque, err := GenerateOpaqueToken(DefaultOpaqueTokenBytes)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}

	now := time.Now()
	record := &RefreshToken{
		ID:             uuid.New(),
		Token:          opaque,
		UserID:         userID,
		OrganizationID: orgID,
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.refreshTTL),
	}

	pair := &TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		ExpiresAt:    expiresAt,
	}

	return pair, record, nil
}

// generateJWT builds the claims, runs the decorator, and rejects any
// decoration that touched the immutable claim set before signing.
func (s *Auther) generateJWT(ctx context.Context, identity Identity, orgID uuid.UUID, role Role) (string, time.Time, error) {
	claims, expiresAt := s.newJWTClaims(identity, orgID, role)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed: %v", err)
		return "", time.Time{}, err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims: %v", err)
		return "", time.Time{}, err
	}

	token, err := s.tokenService.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (s *Auther) newJWTClaims(identity Identity, orgID uuid.UUID, role Role) (*JWTClaims, time.Time) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID: identity.ID(),
	}

	if orgID != uuid.Nil {
		claims.OrgID = orgID.String()
		claims.UserRole = string(role)
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims, expiresAt
}

// primaryMembership picks the organization scope for a fresh login: the
// oldest active membership. A user with no active memberships still
// logs in and gets an identity-only token.
func (s *Auther) primaryMembership(ctx context.Context, userID uuid.UUID) (uuid.UUID, Role, error) {
	records, err := s.repo.Memberships().ListActiveForUser(ctx, userID)
	if err != nil {
		return uuid.Nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to list memberships")
	}

	if len(records) == 0 {
		return uuid.Nil, "", nil
	}

	return records[0].OrganizationID, records[0].Role, nil
}

// refreshScope decides which organization the refreshed pair is scoped
// to. The stored token row is authoritative; the expired access token
// only serves as a fallback hint for rows minted before org scoping.
// Either way the membership row is re-read: a membership deactivated
// since login kills the refresh.
func (s *Auther) refreshScope(ctx context.Context, row *RefreshToken, accessToken string, userID uuid.UUID) (uuid.UUID, Role, error) {
	orgID := row.OrganizationID
	if orgID == uuid.Nil && accessToken != "" {
		if hint, ok := parseOrganizationHint(s.signingKey, accessToken); ok {
			orgID = hint
		}
	}

	if orgID == uuid.Nil {
		return uuid.Nil, "", nil
	}

	membership, err := s.repo.Memberships().GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.IsNotFound(err) {
			return uuid.Nil, "", ErrTokenRevoked
		}
		return uuid.Nil, "", errors.Wrap(err, errors.CategoryInternal, "failed to load membership for refresh")
	}

	if !membership.Active || membership.IsPending() {
		return uuid.Nil, "", ErrTokenRevoked
	}

	return orgID, membership.Role, nil
}

func (s *Auther) denyRefresh(ctx context.Context, userID, reason string) {
	actor := ActorRef{Type: "unknown"}
	if userID != "" {
		actor = ActorRef{ID: userID, Type: "user"}
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshDenied, actor, userID, map[string]any{
		"reason": reason,
	})
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

// collapseCredentialError hides the difference between "no such user"
// and "wrong password". Throttling and inactive-account errors carry
// their own text codes and pass through untouched.
func collapseCredentialError(err error) error {
	if errors.Is(err, ErrMismatchedHashAndPassword) || errors.Is(err, ErrIdentityNotFound) {
		return ErrInvalidCredentials
	}
	return err
}

// loginFailureMetadata describes a failed login for the activity sink.
// The text code, when present, gives sinks a bounded reason to count on.
func loginFailureMetadata(identifier string, err error) map[string]any {
	metadata := map[string]any{
		"identifier": identifier,
		"error":      err.Error(),
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		metadata["text_code"] = richErr.TextCode
	}

	return metadata
}
