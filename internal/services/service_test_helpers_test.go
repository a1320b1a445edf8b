package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/mail"
)

type sentCode struct {
	To      string
	Name    string
	Kind    mail.TemplateKind
	Code    string
	Subject string
}

// recordingSender captures outgoing codes so tests can read them back.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, name string, kind mail.TemplateKind, code, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentCode{To: to, Name: name, Kind: kind, Code: code, Subject: subject})
	return r.err
}

func (r *recordingSender) last(t *testing.T) sentCode {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent, "expected a code to be sent")
	return r.sent[len(r.sent)-1]
}

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

type accountEnv struct {
	db           *gorm.DB
	svc          *AccountService
	sender       *recordingSender
	clock        *testClock
	sessions     *auth.SessionManager
	verification *VerificationService
	encoder      crypto.BcryptEncoder
}

func setupAccountService(t *testing.T) *accountEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	clock := &testClock{current: time.Now().UTC().Truncate(time.Second)}

	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	refreshStore, err := auth.NewGormRefreshTokenStore(db)
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(refreshStore, codec, auth.SessionConfig{Clock: clock.Now})
	require.NoError(t, err)

	verificationStore, err := NewGormVerificationTokenStore(db)
	require.NoError(t, err)
	verification, err := NewVerificationService(verificationStore, WithVerificationClock(clock.Now))
	require.NoError(t, err)

	users, err := NewGormUserStore(db)
	require.NoError(t, err)
	encoder := crypto.BcryptEncoder{Cost: bcrypt.MinCost}
	authn, err := NewLocalAuthenticator(users, encoder)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	sender := &recordingSender{}
	svc, err := NewAccountService(AccountDeps{
		Users:         users,
		Roles:         users,
		Encoder:       encoder,
		Sender:        sender,
		Authenticator: authn,
		Sessions:      sessions,
		Codec:         codec,
		Verification:  verification,
		Cookie:        auth.DefaultCookieConfig(0),
		Audit:         audit,
		DB:            db,
	}, AccountConfig{Clock: clock.Now})
	require.NoError(t, err)

	return &accountEnv{
		db:           db,
		svc:          svc,
		sender:       sender,
		clock:        clock,
		sessions:     sessions,
		verification: verification,
		encoder:      encoder,
	}
}

// registerVerified registers and activates a user, returning it.
func (e *accountEnv) registerVerified(t *testing.T, email, password string) *models.User {
	t.Helper()

	user, err := e.svc.Register(context.Background(), nil, RegisterInput{FirstName: "Test", Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, e.svc.VerifyAccount(context.Background(), e.sender.last(t).Code))
	return user
}

// login authenticates through a response channel and returns the refresh cookie value.
func (e *accountEnv) login(t *testing.T, email, password string) (*AuthResult, string) {
	t.Helper()

	client, rec := newClient("")
	result, err := e.svc.Authenticate(context.Background(), client, email, password, "test-device")
	require.NoError(t, err)
	cookie := refreshCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	return result, cookie.Value
}

func newClient(refreshToken string) (*ClientContext, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("User-Agent", "service-test")
	if refreshToken != "" {
		req.AddCookie(&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: refreshToken})
	}
	rec := httptest.NewRecorder()
	return &ClientContext{Request: req, Writer: rec}, rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultRefreshCookieName {
			return c
		}
	}
	t.Fatalf("refresh cookie not set")
	return nil
}

var errSendFailed = errors.New("smtp down")
