package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/models"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/mail"
	"github.com/charlesng35/authcore/pkg/metrics"
)

// DefaultRoleName is granted to every registered user unless configured otherwise.
const DefaultRoleName = "USER"

// Identity is the authenticated caller of a self-service operation.
type Identity struct {
	UserID string
}

// ClientContext is the response channel of an operation that mints sessions.
// A nil Writer means no cookie is set and no refresh token is created.
type ClientContext struct {
	Request *http.Request
	Writer  http.ResponseWriter
}

func (c *ClientContext) request() *http.Request {
	if c == nil {
		return nil
	}
	return c.Request
}

func (c *ClientContext) writer() http.ResponseWriter {
	if c == nil {
		return nil
	}
	return c.Writer
}

// RegisterInput carries the fields of a registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthResult is returned by operations that issue tokens. RefreshToken is
// only set when a session was created; it travels to clients as a cookie.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	User         *models.User
}

// AccountDeps lists the collaborators of the account service.
type AccountDeps struct {
	Users         UserStore
	Roles         RoleStore
	Encoder       PasswordEncoder
	Sender        CodeSender
	Authenticator Authenticator
	Sessions      *auth.SessionManager
	Codec         *auth.TokenCodec
	Verification  *VerificationService
	Cookie        auth.CookieConfig
	Audit         *AuditService
	// DB, when set, runs registration in one transaction so a user is never
	// left without its activation code.
	DB *gorm.DB
}

// AccountConfig holds tunables of the account service.
type AccountConfig struct {
	DefaultRole string
	Clock       func() time.Time
}

// AccountService implements registration, authentication, session and
// verification-code gated account mutations.
type AccountService struct {
	users        UserStore
	roles        RoleStore
	encoder      PasswordEncoder
	sender       CodeSender
	authn        Authenticator
	sessions     *auth.SessionManager
	codec        *auth.TokenCodec
	verification *VerificationService
	cookie       auth.CookieConfig
	audit        *AuditService
	db           *gorm.DB
	defaultRole  string
	now          func() time.Time
	log          *zap.Logger
}

// NewAccountService wires the account service.
func NewAccountService(deps AccountDeps, cfg AccountConfig) (*AccountService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("account service: user store is required")
	case deps.Roles == nil:
		return nil, errors.New("account service: role store is required")
	case deps.Encoder == nil:
		return nil, errors.New("account service: password encoder is required")
	case deps.Sender == nil:
		return nil, errors.New("account service: code sender is required")
	case deps.Authenticator == nil:
		return nil, errors.New("account service: authenticator is required")
	case deps.Sessions == nil:
		return nil, errors.New("account service: session manager is required")
	case deps.Codec == nil:
		return nil, errors.New("account service: token codec is required")
	case deps.Verification == nil:
		return nil, errors.New("account service: verification service is required")
	}

	role := strings.TrimSpace(cfg.DefaultRole)
	if role == "" {
		role = DefaultRoleName
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	cookie := deps.Cookie
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = deps.Sessions.RefreshTTL()
	}

	return &AccountService{
		users:        deps.Users,
		roles:        deps.Roles,
		encoder:      deps.Encoder,
		sender:       deps.Sender,
		authn:        deps.Authenticator,
		sessions:     deps.Sessions,
		codec:        deps.Codec,
		verification: deps.Verification,
		cookie:       cookie,
		audit:        deps.Audit,
		db:           deps.DB,
		defaultRole:  role,
		now:          clock,
		log:          logger.WithModule("account"),
	}, nil
}

// Register creates an unverified user with the default role and emails an activation code.
func (s *AccountService) Register(ctx context.Context, client *ClientContext, in RegisterInput) (*models.User, error) {
	email := NormaliseEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.NewBadRequest("email and password are required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, translate(err)
	}
	if exists {
		return nil, apperrors.ErrEmailTaken
	}

	role, err := s.roles.GetOrCreateDefaultRole(ctx, s.defaultRole)
	if err != nil {
		return nil, translate(err)
	}

	digest, err := s.encoder.Hash(in.Password)
	if err != nil {
		return nil, translate(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Password:  digest,
		Roles:     []models.Role{*role},
	}
	var code string
	err = s.inTx(ctx, func(users UserStore, codes *VerificationService) error {
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		var err error
		code, err = codes.Issue(ctx, user.ID, models.KindAccountActivation, NoPayload{})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	s.sendCode(ctx, user.Email, user.FullName(), mail.TemplateActivateAccount, code, "Activate your account")

	s.record(ctx, client, AuditEntry{UserID: user.ID, Email: user.Email, Action: AuditActionRegister, Result: AuditResultSuccess})
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// ResendActivation issues a fresh activation code. Unknown addresses are
// accepted silently so the endpoint cannot be used to probe for accounts.
func (s *AccountService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.users.FindByEmailWithRoles(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return translate(err)
	}
	if user.Verified {
		return apperrors.ErrAlreadyVerified
	}

	code, err := s.verification.Issue(ctx, user.ID, models.KindAccountActivation, NoPayload{})
	if err != nil {
		return translate(err)
	}
	s.sendCode(ctx, user.Email, user.FullName(), mail.TemplateActivateAccount, code, "Activate your account")
	return nil
}

// Authenticate checks credentials, requires a verified account and issues an
// access token. A session and refresh cookie are created when client has a writer.
func (s *AccountService) Authenticate(ctx context.Context, client *ClientContext, email, password, deviceInfo string) (*AuthResult, error) {
	user, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
			s.record(ctx, client, AuditEntry{Email: NormaliseEmail(email), Action: AuditActionLogin, Result: AuditResultFailure})
			return nil, apperrors.ErrInvalidCredentials
		}
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, translate(err)
	}

	if !user.Verified {
		metrics.AuthAttempts.WithLabelValues("not_verified").Inc()
		return nil, apperrors.ErrNotVerified
	}

	result, err := s.mintTokens(ctx, client, user, deviceInfo)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	// Session first, digest check second: a concurrent password change either
	// revokes this session or fails the check.
	now := s.now()
	current, err := s.users.UpdateLastLogin(ctx, user.ID, user.Password, now)
	if err != nil || !current {
		s.discardSession(ctx, result)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("error").Inc()
			return nil, translate(err)
		}
		metrics.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		s.log.Warn("password changed during login", zap.String("user_id", user.ID))
		return nil, apperrors.ErrInvalidCredentials
	}
	user.LastLoginAt = &now
	s.setCookie(client, result)

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.record(ctx, client, AuditEntry{UserID: user.ID, Email: user.Email, Action: AuditActionLogin, Result: AuditResultSuccess})
	return result, nil
}

// Refresh rotates the refresh cookie and issues a new access token.
func (s *AccountService) Refresh(ctx context.Context, client *ClientContext) (*AuthResult, error) {
	token := s.cookie.Read(client.request())
	if token == "" {
		return nil, apperrors.ErrUnauthorized.WithMessage("refresh token not found")
	}

	next, row, err := s.sessions.RotateSession(ctx, token, "", client.request())
	if err != nil {
		if errors.Is(err, auth.ErrSessionReused) {
			s.clearCookie(client)
			s.record(ctx, client, AuditEntry{Action: AuditActionRefreshReuse, Result: AuditResultFailure})
		}
		return nil, translate(err)
	}

	user, err := s.users.FindByID(ctx, row.UserID)
	if err != nil {
		return nil, translate(err)
	}

	access, err := s.codec.IssueAccessToken(user.ID, accessClaims(user))
	if err != nil {
		return nil, translate(err)
	}
	if w := client.writer(); w != nil {
		s.cookie.Set(w, next)
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresIn:    s.codec.TTL(auth.TokenKindAccess),
		User:         user,
	}, nil
}

// Logout revokes the presented session on a best-effort basis and always clears the cookie.
func (s *AccountService) Logout(ctx context.Context, client *ClientContext) error {
	if token := s.cookie.Read(client.request()); token != "" {
		if err := s.sessions.RevokeSession(ctx, token); err != nil {
			s.log.Warn("logout revoke failed", zap.Error(err))
		}
	}
	s.clearCookie(client)
	return nil
}

// LogoutAll requires a valid refresh cookie and revokes every session of its owner.
func (s *AccountService) LogoutAll(ctx context.Context, client *ClientContext) (int64, error) {
	token := s.cookie.Read(client.request())
	if token == "" {
		return 0, apperrors.ErrUnauthorized.WithMessage("refresh token not found")
	}

	row, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		return 0, translate(err)
	}

	count, err := s.sessions.RevokeAllSessions(ctx, row.UserID)
	if err != nil {
		return 0, translate(err)
	}
	s.clearCookie(client)

	s.record(ctx, client, AuditEntry{
		UserID:   row.UserID,
		Action:   AuditActionLogoutAll,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"revoked": count},
	})
	return count, nil
}

// VerifyAccount consumes an activation code and marks the owner verified.
func (s *AccountService) VerifyAccount(ctx context.Context, code string) error {
	token, err := s.verification.Consume(ctx, code, models.KindAccountActivation)
	if err != nil {
		return translate(err)
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return translate(err)
	}
	if user.Verified {
		return apperrors.ErrAlreadyVerified
	}

	flipped, err := s.users.MarkVerified(ctx, user.ID)
	if err != nil {
		return translate(err)
	}
	if !flipped {
		return apperrors.ErrAlreadyVerified
	}
	user.Verified = true
	if err := s.verification.MarkUsed(ctx, token); err != nil {
		return translate(err)
	}

	s.record(ctx, nil, AuditEntry{UserID: user.ID, Email: user.Email, Action: AuditActionVerify, Result: AuditResultSuccess})
	return nil
}

// RequestEmailChange verifies the current password and emails a code to the new address.
func (s *AccountService) RequestEmailChange(ctx context.Context, id Identity, currentPassword, newEmail string) error {
	user, err := s.self(ctx, id)
	if err != nil {
		return err
	}
	if !s.encoder.Matches(currentPassword, user.Password) {
		return apperrors.ErrInvalidCredentials
	}

	newEmail = NormaliseEmail(newEmail)
	if newEmail == "" {
		return apperrors.NewBadRequest("new email is required")
	}
	exists, err := s.users.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return translate(err)
	}
	if exists {
		return apperrors.ErrEmailTaken
	}

	code, err := s.verification.Issue(ctx, user.ID, models.KindEmailChange, NewEmail(newEmail))
	if err != nil {
		return translate(err)
	}
	s.sendCode(ctx, newEmail, user.FullName(), mail.TemplateChangeEmail, code, "Confirm your new email address")
	return nil
}

// VerifyEmailChange applies the new email carried by code, revokes every
// session and issues a fresh token pair.
func (s *AccountService) VerifyEmailChange(ctx context.Context, client *ClientContext, code string) (*AuthResult, error) {
	token, err := s.verification.Consume(ctx, code, models.KindEmailChange)
	if err != nil {
		return nil, translate(err)
	}

	payload, err := DecodePayload(token)
	if err != nil {
		return nil, translate(err)
	}
	newEmail, ok := payload.(NewEmail)
	if !ok || newEmail == "" {
		return nil, translate(ErrPayloadMissing)
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return nil, translate(err)
	}

	previous := user.Email
	if err := s.users.SetEmail(ctx, user.ID, string(newEmail)); err != nil {
		return nil, translate(err)
	}
	user.Email = string(newEmail)
	if err := s.verification.MarkUsed(ctx, token); err != nil {
		return nil, translate(err)
	}
	if _, err := s.sessions.RevokeAllSessions(ctx, user.ID); err != nil {
		return nil, translate(err)
	}

	result, err := s.issueTokens(ctx, client, user, "")
	if err != nil {
		return nil, err
	}

	s.record(ctx, client, AuditEntry{
		UserID:   user.ID,
		Email:    user.Email,
		Action:   AuditActionEmailChange,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"previous_email": previous},
	})
	return result, nil
}

// RequestPasswordChange verifies the current password and stores the digest
// of the new one on a code emailed to the user.
func (s *AccountService) RequestPasswordChange(ctx context.Context, id Identity, currentPassword, newPassword string) error {
	user, err := s.self(ctx, id)
	if err != nil {
		return err
	}
	if !s.encoder.Matches(currentPassword, user.Password) {
		return apperrors.ErrInvalidCredentials
	}
	if newPassword == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	digest, err := s.encoder.Hash(newPassword)
	if err != nil {
		return translate(fmt.Errorf("hash password: %w", err))
	}

	code, err := s.verification.Issue(ctx, user.ID, models.KindPasswordChange, NewPasswordDigest(digest))
	if err != nil {
		return translate(err)
	}
	s.sendCode(ctx, user.Email, user.FullName(), mail.TemplateChangePassword, code, "Confirm your password change")
	return nil
}

// VerifyPasswordChange applies the pre-encoded password carried by code and revokes every session.
func (s *AccountService) VerifyPasswordChange(ctx context.Context, code string) error {
	token, err := s.verification.Consume(ctx, code, models.KindPasswordChange)
	if err != nil {
		return translate(err)
	}

	payload, err := DecodePayload(token)
	if err != nil {
		return translate(err)
	}
	digest, ok := payload.(NewPasswordDigest)
	if !ok || digest == "" {
		return translate(ErrPayloadMissing)
	}

	return s.applyPassword(ctx, token, string(digest), AuditActionPasswordChange)
}

// SendPasswordResetEmail emails a reset code. Unknown addresses are accepted
// silently so the endpoint cannot be used to probe for accounts.
func (s *AccountService) SendPasswordResetEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmailWithRoles(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.log.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return translate(err)
	}

	code, err := s.verification.Issue(ctx, user.ID, models.KindPasswordReset, NoPayload{})
	if err != nil {
		return translate(err)
	}
	s.sendCode(ctx, user.Email, user.FullName(), mail.TemplateResetPassword, code, "Reset your password")
	return nil
}

// ResetPassword consumes a reset code, encodes newPassword and revokes every session.
func (s *AccountService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if newPassword == "" {
		return apperrors.NewBadRequest("new password is required")
	}

	token, err := s.verification.Consume(ctx, code, models.KindPasswordReset)
	if err != nil {
		return translate(err)
	}

	digest, err := s.encoder.Hash(newPassword)
	if err != nil {
		return translate(fmt.Errorf("hash password: %w", err))
	}

	return s.applyPassword(ctx, token, digest, AuditActionPasswordReset)
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, id Identity) (*models.User, error) {
	return s.self(ctx, id)
}

// ListSessions returns the caller's active sessions.
func (s *AccountService) ListSessions(ctx context.Context, id Identity) ([]auth.SessionSummary, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	sessions, err := s.sessions.ListSessions(ctx, id.UserID)
	if err != nil {
		return nil, translate(err)
	}
	return sessions, nil
}

// RevokeSessionByID revokes one of the caller's sessions.
func (s *AccountService) RevokeSessionByID(ctx context.Context, id Identity, sessionID string) error {
	if strings.TrimSpace(id.UserID) == "" {
		return apperrors.ErrUnauthorized
	}
	if err := s.sessions.RevokeSessionByID(ctx, id.UserID, sessionID); err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return apperrors.ErrNotFound.WithMessage("session not found")
		}
		return translate(err)
	}
	s.record(ctx, nil, AuditEntry{
		UserID:   id.UserID,
		Action:   AuditActionSessionRevoke,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"session_id": sessionID},
	})
	return nil
}

// Activity returns the caller's recent audit events.
func (s *AccountService) Activity(ctx context.Context, id Identity, limit int) ([]models.AuditLog, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if s.audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.audit.ListForUser(ctx, id.UserID, limit)
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func (s *AccountService) applyPassword(ctx context.Context, token *models.VerificationToken, digest, action string) error {
	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return translate(err)
	}

	if err := s.users.SetPassword(ctx, user.ID, digest); err != nil {
		return translate(err)
	}
	if err := s.verification.MarkUsed(ctx, token); err != nil {
		return translate(err)
	}

	revoked, err := s.sessions.RevokeAllSessions(ctx, user.ID)
	if err != nil {
		return translate(err)
	}

	s.record(ctx, nil, AuditEntry{
		UserID:   user.ID,
		Email:    user.Email,
		Action:   action,
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"revoked_sessions": revoked},
	})
	return nil
}

func (s *AccountService) issueTokens(ctx context.Context, client *ClientContext, user *models.User, deviceInfo string) (*AuthResult, error) {
	result, err := s.mintTokens(ctx, client, user, deviceInfo)
	if err != nil {
		return nil, err
	}
	s.setCookie(client, result)
	return result, nil
}

// mintTokens issues the access token and, when client has a writer, a session.
// The cookie is left to the caller.
func (s *AccountService) mintTokens(ctx context.Context, client *ClientContext, user *models.User, deviceInfo string) (*AuthResult, error) {
	access, err := s.codec.IssueAccessToken(user.ID, accessClaims(user))
	if err != nil {
		return nil, translate(err)
	}

	result := &AuthResult{
		AccessToken: access,
		ExpiresIn:   s.codec.TTL(auth.TokenKindAccess),
		User:        user,
	}

	if client.writer() != nil {
		refresh, _, err := s.sessions.CreateSession(ctx, user.ID, deviceInfo, client.request())
		if err != nil {
			return nil, translate(err)
		}
		result.RefreshToken = refresh
	}
	return result, nil
}

func (s *AccountService) setCookie(client *ClientContext, result *AuthResult) {
	if w := client.writer(); w != nil && result.RefreshToken != "" {
		s.cookie.Set(w, result.RefreshToken)
	}
}

func (s *AccountService) discardSession(ctx context.Context, result *AuthResult) {
	if result.RefreshToken == "" {
		return
	}
	if err := s.sessions.RevokeSession(ctx, result.RefreshToken); err != nil {
		s.log.Warn("discard session failed", zap.Error(err))
	}
}

// inTx runs fn with stores bound to a single transaction when a database
// handle is configured, and with the plain collaborators otherwise.
func (s *AccountService) inTx(ctx context.Context, fn func(users UserStore, codes *VerificationService) error) error {
	if s.db == nil {
		return fn(s.users, s.verification)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := NewGormUserStore(tx)
		if err != nil {
			return err
		}
		store, err := NewGormVerificationTokenStore(tx)
		if err != nil {
			return err
		}
		return fn(users, s.verification.withStore(store))
	})
}

func (s *AccountService) self(ctx context.Context, id Identity) (*models.User, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *AccountService) sendCode(ctx context.Context, to, name string, kind mail.TemplateKind, code, subject string) {
	if err := s.sender.Send(ctx, to, name, kind, code, subject); err != nil {
		metrics.EmailFailures.WithLabelValues(string(kind)).Inc()
		s.log.Warn("verification email not sent", zap.String("template", string(kind)), zap.Error(err))
	}
}

func (s *AccountService) clearCookie(client *ClientContext) {
	if w := client.writer(); w != nil {
		s.cookie.Clear(w)
	}
}

func (s *AccountService) record(ctx context.Context, client *ClientContext, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	if r := client.request(); r != nil {
		entry.IPAddress = auth.ClientIP(r)
		entry.UserAgent = r.UserAgent()
	}
	s.audit.Record(ctx, entry)
}

func accessClaims(user *models.User) map[string]any {
	claims := map[string]any{"email": user.Email}
	if roles := user.RoleNames(); len(roles) > 0 {
		claims["roles"] = roles
	}
	return claims
}

// translate maps lower-layer sentinels to the user-facing error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, auth.ErrSessionInvalidToken),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionReused):
		return apperrors.ErrUnauthorized.WithInternal(err)
	case errors.Is(err, ErrCodeInvalid):
		return apperrors.ErrInvalidCode
	case errors.Is(err, ErrCodeAlreadyUsed):
		return apperrors.ErrCodeAlreadyUsed
	case errors.Is(err, ErrCodeExpired):
		return apperrors.ErrCodeExpired
	case errors.Is(err, ErrCodeWrongKind):
		return apperrors.ErrCodeWrongKind
	case errors.Is(err, ErrPayloadMissing):
		return apperrors.NewBadRequest("verification code carries no payload")
	case errors.Is(err, ErrEmailAlreadyExists):
		return apperrors.ErrEmailTaken
	case errors.Is(err, ErrInvalidCredentials):
		return apperrors.ErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return apperrors.ErrNotFound.WithMessage("user not found")
	default:
		return apperrors.ErrInternalServer.WithInternal(err)
	}
}
