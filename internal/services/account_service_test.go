package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/models"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/mail"
)

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func TestRegisterVerifyAuthenticateScenario(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, nil, RegisterInput{FirstName: "Ada", LastName: "L", Email: "A@x.com ", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", user.Email)
	require.False(t, user.Verified)
	require.NotEqual(t, "secret1", user.Password)

	sent := env.sender.last(t)
	require.Equal(t, "a@x.com", sent.To)
	require.Equal(t, "Ada L", sent.Name)
	require.Equal(t, mail.TemplateActivateAccount, sent.Kind)
	require.Regexp(t, sixDigits, sent.Code)

	_, err = env.svc.Authenticate(ctx, nil, "a@x.com", "secret1", "")
	require.ErrorIs(t, err, apperrors.ErrNotVerified)

	require.NoError(t, env.svc.VerifyAccount(ctx, sent.Code))

	client, rec := newClient("")
	result, err := env.svc.Authenticate(ctx, client, "a@x.com", "secret1", "laptop")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	cookie := refreshCookie(t, rec)
	require.Equal(t, result.RefreshToken, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	var stored models.User
	require.NoError(t, env.db.Preload("Roles").Take(&stored, "id = ?", user.ID).Error)
	require.True(t, stored.Verified)
	require.Equal(t, []string{DefaultRoleName}, stored.RoleNames())
	require.NotNil(t, stored.LastLoginAt)
	require.True(t, env.clock.Now().Equal(stored.LastLoginAt.UTC()), "login time comes from the injected clock")
}

func TestAuthenticateWithoutResponseChannelIssuesNoSession(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "api@x.com", "secret1")

	result, err := env.svc.Authenticate(context.Background(), nil, "api@x.com", "secret1", "")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Empty(t, result.RefreshToken)

	sessions, err := env.sessions.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	env := setupAccountService(t)
	env.registerVerified(t, "bad@x.com", "secret1")

	_, err := env.svc.Authenticate(context.Background(), nil, "bad@x.com", "wrong1", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.svc.Authenticate(context.Background(), nil, "nobody@x.com", "secret1", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAccessTokenCarriesRoleClaims(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "claims@x.com", "secret1")

	result, err := env.svc.Authenticate(context.Background(), nil, "claims@x.com", "secret1", "")
	require.NoError(t, err)

	claims, err := env.svc.codec.Verify(result.AccessToken, auth.TokenKindAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, []string{DefaultRoleName}, claims.Roles())
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, nil, RegisterInput{Email: "dup@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, nil, RegisterInput{Email: "DUP@x.com", Password: "secret2"})
	require.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestRegisterSurvivesEmailFailure(t *testing.T) {
	env := setupAccountService(t)
	env.sender.err = errSendFailed

	_, err := env.svc.Register(context.Background(), nil, RegisterInput{Email: "offline@x.com", Password: "secret1"})
	require.NoError(t, err)

	// The issued code stays valid even though delivery failed.
	require.NoError(t, env.svc.VerifyAccount(context.Background(), env.sender.last(t).Code))
}

func TestVerifyAccountTwiceFails(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, nil, RegisterInput{Email: "twice@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := env.sender.last(t).Code

	require.NoError(t, env.svc.VerifyAccount(ctx, code))
	require.ErrorIs(t, env.svc.VerifyAccount(ctx, code), apperrors.ErrCodeAlreadyUsed)
}

func TestVerifyAccountRejectsAlreadyVerifiedUser(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, nil, RegisterInput{Email: "again@x.com", Password: "secret1"})
	require.NoError(t, err)
	first := env.sender.last(t).Code

	require.NoError(t, env.svc.ResendActivation(ctx, "again@x.com"))
	second := env.sender.last(t).Code

	require.NoError(t, env.svc.VerifyAccount(ctx, first))
	if second != first {
		require.ErrorIs(t, env.svc.VerifyAccount(ctx, second), apperrors.ErrAlreadyVerified)
	}
	require.ErrorIs(t, env.svc.ResendActivation(ctx, "again@x.com"), apperrors.ErrAlreadyVerified)
	require.NoError(t, env.svc.ResendActivation(ctx, "unknown@x.com"))
}

func TestVerifyAccountRejectsExpiredAndUnknownCodes(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, nil, RegisterInput{Email: "late@x.com", Password: "secret1"})
	require.NoError(t, err)
	code := env.sender.last(t).Code

	require.ErrorIs(t, env.svc.VerifyAccount(ctx, "abcdef"), apperrors.ErrInvalidCode)

	env.clock.Advance(25 * time.Hour)
	require.ErrorIs(t, env.svc.VerifyAccount(ctx, code), apperrors.ErrCodeExpired)
}

func TestRefreshTwiceWithSameCookieFails(t *testing.T) {
	env := setupAccountService(t)
	env.registerVerified(t, "rotate@x.com", "secret1")
	ctx := context.Background()

	_, original := env.login(t, "rotate@x.com", "secret1")

	client, rec := newClient(original)
	result, err := env.svc.Refresh(ctx, client)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	rotated := refreshCookie(t, rec)
	require.NotEqual(t, original, rotated.Value)

	again, _ := newClient(original)
	_, err = env.svc.Refresh(ctx, again)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	next, _ := newClient(rotated.Value)
	_, err = env.svc.Refresh(ctx, next)
	require.NoError(t, err)
}

func TestRefreshWithoutCookieIsUnauthorized(t *testing.T) {
	env := setupAccountService(t)

	client, _ := newClient("")
	_, err := env.svc.Refresh(context.Background(), client)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Contains(t, err.Error(), "refresh token not found")
}

func TestLogoutAlwaysClearsCookie(t *testing.T) {
	env := setupAccountService(t)
	env.registerVerified(t, "logout@x.com", "secret1")
	ctx := context.Background()

	_, token := env.login(t, "logout@x.com", "secret1")

	client, rec := newClient(token)
	require.NoError(t, env.svc.Logout(ctx, client))
	require.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	_, err := env.sessions.ValidateSession(ctx, token)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)

	empty, rec := newClient("")
	require.NoError(t, env.svc.Logout(ctx, empty))
	require.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	garbage, _ := newClient("garbage")
	require.NoError(t, env.svc.Logout(ctx, garbage))
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "all@x.com", "secret1")
	ctx := context.Background()

	_, first := env.login(t, "all@x.com", "secret1")
	_, _ = env.login(t, "all@x.com", "secret1")

	before, err := env.svc.ListSessions(ctx, Identity{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, before, 2)

	client, rec := newClient(first)
	count, err := env.svc.LogoutAll(ctx, client)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	after, err := env.svc.ListSessions(ctx, Identity{UserID: user.ID})
	require.NoError(t, err)
	require.Empty(t, after)

	noCookie, _ := newClient("")
	_, err = env.svc.LogoutAll(ctx, noCookie)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	revoked, _ := newClient(first)
	_, err = env.svc.LogoutAll(ctx, revoked)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPasswordChangeStoresDigestAndRevokesSessions(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "pw@x.com", "secret1")
	ctx := context.Background()
	id := Identity{UserID: user.ID}

	_, session := env.login(t, "pw@x.com", "secret1")

	require.ErrorIs(t, env.svc.RequestPasswordChange(ctx, id, "wrong1", "newpass2"), apperrors.ErrInvalidCredentials)
	require.NoError(t, env.svc.RequestPasswordChange(ctx, id, "secret1", "newpass2"))

	sent := env.sender.last(t)
	require.Equal(t, mail.TemplateChangePassword, sent.Kind)
	require.Equal(t, "pw@x.com", sent.To)

	var pending models.VerificationToken
	require.NoError(t, env.db.Where("code = ? AND kind = ?", sent.Code, models.KindPasswordChange).Take(&pending).Error)
	require.NotNil(t, pending.Payload)
	require.NotEqual(t, "newpass2", *pending.Payload)
	require.True(t, env.encoder.Matches("newpass2", *pending.Payload))

	require.NoError(t, env.svc.VerifyPasswordChange(ctx, sent.Code))

	var stored models.User
	require.NoError(t, env.db.Take(&stored, "id = ?", user.ID).Error)
	require.Equal(t, *pending.Payload, stored.Password)

	_, err := env.sessions.ValidateSession(ctx, session)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)

	_, err = env.svc.Authenticate(ctx, nil, "pw@x.com", "secret1", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.svc.Authenticate(ctx, nil, "pw@x.com", "newpass2", "")
	require.NoError(t, err)

	require.ErrorIs(t, env.svc.VerifyPasswordChange(ctx, sent.Code), apperrors.ErrCodeAlreadyUsed)
}

func TestEmailChangeFlow(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "old@x.com", "secret1")
	env.registerVerified(t, "taken@x.com", "secret1")
	ctx := context.Background()
	id := Identity{UserID: user.ID}

	_, session := env.login(t, "old@x.com", "secret1")

	require.ErrorIs(t, env.svc.RequestEmailChange(ctx, id, "secret1", "taken@x.com"), apperrors.ErrEmailTaken)
	require.ErrorIs(t, env.svc.RequestEmailChange(ctx, id, "nope12", "new@x.com"), apperrors.ErrInvalidCredentials)
	require.NoError(t, env.svc.RequestEmailChange(ctx, id, "secret1", "New@x.com"))

	sent := env.sender.last(t)
	require.Equal(t, "new@x.com", sent.To)
	require.Equal(t, mail.TemplateChangeEmail, sent.Kind)

	client, rec := newClient("")
	result, err := env.svc.VerifyEmailChange(ctx, client, sent.Code)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, result.RefreshToken, refreshCookie(t, rec).Value)
	require.Equal(t, "new@x.com", result.User.Email)

	_, err = env.sessions.ValidateSession(ctx, session)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	_, err = env.sessions.ValidateSession(ctx, result.RefreshToken)
	require.NoError(t, err)

	_, err = env.svc.Authenticate(ctx, nil, "new@x.com", "secret1", "")
	require.NoError(t, err)
}

func TestVerifyEmailChangeRequiresPayload(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "nopayload@x.com", "secret1")
	ctx := context.Background()

	require.NoError(t, env.svc.RequestEmailChange(ctx, Identity{UserID: user.ID}, "secret1", "other@x.com"))
	code := env.sender.last(t).Code

	require.NoError(t, env.db.Model(&models.VerificationToken{}).Where("code = ?", code).Update("payload", nil).Error)

	_, err := env.svc.VerifyEmailChange(ctx, nil, code)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestCodeOfWrongKindIsRejected(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "kind@x.com", "secret1")
	ctx := context.Background()

	require.NoError(t, env.svc.RequestPasswordChange(ctx, Identity{UserID: user.ID}, "secret1", "newpass2"))
	code := env.sender.last(t).Code

	_, err := env.svc.VerifyEmailChange(ctx, nil, code)
	require.ErrorIs(t, err, apperrors.ErrCodeWrongKind)
	require.ErrorIs(t, env.svc.ResetPassword(ctx, code, "another3"), apperrors.ErrCodeWrongKind)

	// A rejected attempt leaves the code usable for its own operation.
	require.NoError(t, env.svc.VerifyPasswordChange(ctx, code))
}

func TestPasswordResetFlow(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "forgot@x.com", "secret1")
	ctx := context.Background()

	_, session := env.login(t, "forgot@x.com", "secret1")

	require.NoError(t, env.svc.SendPasswordResetEmail(ctx, "unknown@x.com"))
	require.NoError(t, env.svc.SendPasswordResetEmail(ctx, "FORGOT@x.com"))

	sent := env.sender.last(t)
	require.Equal(t, mail.TemplateResetPassword, sent.Kind)
	require.Equal(t, "forgot@x.com", sent.To)

	require.NoError(t, env.svc.ResetPassword(ctx, sent.Code, "reset123"))

	_, err := env.sessions.ValidateSession(ctx, session)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)

	result, err := env.svc.Authenticate(ctx, nil, "forgot@x.com", "reset123", "")
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)

	require.ErrorIs(t, env.svc.ResetPassword(ctx, sent.Code, "again123"), apperrors.ErrCodeAlreadyUsed)
}

// interleavingAuthenticator runs between once the credential check has passed.
type interleavingAuthenticator struct {
	inner   Authenticator
	between func()
}

func (a *interleavingAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.inner.Authenticate(ctx, email, password)
	if err == nil && a.between != nil {
		a.between()
	}
	return user, err
}

func TestPasswordResetCommittedDuringLoginIsKept(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "race@x.com", "secret1")
	ctx := context.Background()

	require.NoError(t, env.svc.SendPasswordResetEmail(ctx, "race@x.com"))
	code := env.sender.last(t).Code

	local := env.svc.authn
	env.svc.authn = &interleavingAuthenticator{inner: local, between: func() {
		require.NoError(t, env.svc.ResetPassword(ctx, code, "newpass2"))
	}}

	client, rec := newClient("")
	_, err := env.svc.Authenticate(ctx, client, "race@x.com", "secret1", "laptop")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Empty(t, rec.Result().Cookies())

	var stored models.User
	require.NoError(t, env.db.Take(&stored, "id = ?", user.ID).Error)
	require.False(t, env.encoder.Matches("secret1", stored.Password))
	require.True(t, env.encoder.Matches("newpass2", stored.Password))
	require.Nil(t, stored.LastLoginAt)

	sessions, err := env.sessions.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions, "the session minted by the stale login is revoked")

	env.svc.authn = local
	_, err = env.svc.Authenticate(ctx, nil, "race@x.com", "newpass2", "")
	require.NoError(t, err)
}

func TestEmailChangeKeepsConcurrentPasswordChange(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "both@x.com", "secret1")
	ctx := context.Background()
	id := Identity{UserID: user.ID}

	require.NoError(t, env.svc.RequestEmailChange(ctx, id, "secret1", "moved@x.com"))
	emailCode := env.sender.last(t).Code
	require.NoError(t, env.svc.RequestPasswordChange(ctx, id, "secret1", "changed2"))
	passwordCode := env.sender.last(t).Code

	require.NoError(t, env.svc.VerifyPasswordChange(ctx, passwordCode))
	_, err := env.svc.VerifyEmailChange(ctx, nil, emailCode)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, env.db.Take(&stored, "id = ?", user.ID).Error)
	require.Equal(t, "moved@x.com", stored.Email)
	require.True(t, env.encoder.Matches("changed2", stored.Password))
	require.True(t, stored.Verified)
}

func TestRegisterRollsBackWhenCodeCannotBeStored(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()
	require.NoError(t, env.db.Migrator().DropTable(&models.VerificationToken{}))

	_, err := env.svc.Register(ctx, nil, RegisterInput{Email: "half@x.com", Password: "secret1"})
	require.ErrorIs(t, err, apperrors.ErrInternalServer)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", "half@x.com").Count(&count).Error)
	require.Zero(t, count, "the user insert is rolled back with the code")
	require.Empty(t, env.sender.sent)
}

func TestRevokeSessionByIDAndActivity(t *testing.T) {
	env := setupAccountService(t)
	user := env.registerVerified(t, "devices@x.com", "secret1")
	ctx := context.Background()
	id := Identity{UserID: user.ID}

	_, token := env.login(t, "devices@x.com", "secret1")
	sessions, err := env.svc.ListSessions(ctx, id)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "test-device", sessions[0].DeviceInfo)

	require.ErrorIs(t, env.svc.RevokeSessionByID(ctx, id, "missing"), apperrors.ErrNotFound)
	require.NoError(t, env.svc.RevokeSessionByID(ctx, id, sessions[0].ID))

	_, err = env.sessions.ValidateSession(ctx, token)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)

	activity, err := env.svc.Activity(ctx, id, 10)
	require.NoError(t, err)
	actions := make([]string, 0, len(activity))
	for _, entry := range activity {
		actions = append(actions, entry.Action)
	}
	require.Contains(t, actions, AuditActionRegister)
	require.Contains(t, actions, AuditActionLogin)
	require.Contains(t, actions, AuditActionSessionRevoke)
}

func TestSelfOperationsRequireIdentity(t *testing.T) {
	env := setupAccountService(t)
	ctx := context.Background()

	_, err := env.svc.Me(ctx, Identity{})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = env.svc.Me(ctx, Identity{UserID: "00000000-0000-0000-0000-000000000000"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.ErrorIs(t, env.svc.RequestEmailChange(ctx, Identity{}, "x", "y@x.com"), apperrors.ErrUnauthorized)
}

func TestTranslateHidesUnexpectedErrors(t *testing.T) {
	err := translate(errSendFailed)
	require.ErrorIs(t, err, apperrors.ErrInternalServer)

	require.ErrorIs(t, translate(auth.ErrSessionReused), apperrors.ErrUnauthorized)
	require.ErrorIs(t, translate(ErrCodeExpired), apperrors.ErrCodeExpired)
	require.Nil(t, translate(nil))
}
