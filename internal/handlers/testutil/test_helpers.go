package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/api"
	"github.com/charlesng35/authcore/internal/app"
	iauth "github.com/charlesng35/authcore/internal/auth"
	sharedtestutil "github.com/charlesng35/authcore/internal/database/testutil"
	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/services"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/mail"
	"github.com/charlesng35/authcore/pkg/response"
)

// SentCode is a verification code captured by the recording sender.
type SentCode struct {
	To   string
	Kind mail.TemplateKind
	Code string
}

// RecordingSender implements services.CodeSender by remembering every code.
type RecordingSender struct {
	mu   sync.Mutex
	sent []SentCode
}

func (r *RecordingSender) Send(_ context.Context, to, _ string, kind mail.TemplateKind, code, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, SentCode{To: to, Kind: kind, Code: code})
	return nil
}

// Count returns how many codes were sent.
func (r *RecordingSender) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests. It behaves like a browser: the refresh and CSRF cookies
// it receives are replayed on later requests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	Codec    *iauth.TokenCodec
	Sender   *RecordingSender
	Accounts *services.AccountService

	cookieName string
	refresh    *http.Cookie
	csrfToken  string
	csrfCookie *http.Cookie
}

// EnvOption customises the test configuration.
type EnvOption func(*app.Config)

// WithCSRF enables the double-submit guard on cookie routes.
func WithCSRF() EnvOption {
	return func(cfg *app.Config) { cfg.Server.CSRF.Enabled = true }
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			Access:  app.AccessTokenSettings{Secret: "handler-access-secret", Issuer: "test-suite", TTL: time.Hour},
			Refresh: app.RefreshTokenSettings{Secret: "handler-refresh-secret", TTL: 24 * time.Hour},
			Cookie:  app.CookieSettings{HTTPOnly: true, SameSite: "strict", Path: "/"},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	codec, err := iauth.NewTokenCodec(cfg.Auth.CodecConfig())
	require.NoError(t, err)

	refreshStore, err := iauth.NewGormRefreshTokenStore(db)
	require.NoError(t, err)
	sessions, err := iauth.NewSessionManager(refreshStore, codec, iauth.SessionConfig{})
	require.NoError(t, err)

	verificationStore, err := services.NewGormVerificationTokenStore(db)
	require.NoError(t, err)
	verification, err := services.NewVerificationService(verificationStore, cfg.Auth.VerificationOptions()...)
	require.NoError(t, err)

	users, err := services.NewGormUserStore(db)
	require.NoError(t, err)
	encoder := crypto.BcryptEncoder{Cost: bcrypt.MinCost}
	authn, err := services.NewLocalAuthenticator(users, encoder)
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	sender := &RecordingSender{}
	accounts, err := services.NewAccountService(services.AccountDeps{
		Users:         users,
		Roles:         users,
		Encoder:       encoder,
		Sender:        sender,
		Authenticator: authn,
		Sessions:      sessions,
		Codec:         codec,
		Verification:  verification,
		Cookie:        cfg.Auth.CookieConfig(),
		Audit:         audit,
		DB:            db,
	}, cfg.Auth.AccountConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, codec, accounts, cfg)
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		Codec:      codec,
		Sender:     sender,
		Accounts:   accounts,
		cookieName: cfg.Auth.CookieConfig().Name,
	}
}

// LastCode returns the most recently sent verification code.
func (e *Env) LastCode() SentCode {
	e.T.Helper()
	e.Sender.mu.Lock()
	defer e.Sender.mu.Unlock()
	require.NotEmpty(e.T, e.Sender.sent, "expected a verification code to be sent")
	return e.Sender.sent[len(e.Sender.sent)-1]
}

// RefreshCookie returns the refresh cookie currently held by the env, if any.
func (e *Env) RefreshCookie() *http.Cookie {
	return e.refresh
}

// SetRefreshCookie replaces the held refresh cookie; nil drops it.
func (e *Env) SetRefreshCookie(c *http.Cookie) {
	e.refresh = c
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Verified  bool     `json:"verified"`
	Roles     []string `json:"roles"`
}

// LoginResult mirrors the token payload of login, refresh and email verification.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserPayload `json:"user"`
}

// RegisterVerified registers a user through the API and confirms the emailed activation code.
func (e *Env) RegisterVerified(email, password string) UserPayload {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{
		"first_name": "Test",
		"email":      email,
		"password":   password,
	}, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	var user UserPayload
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &user)

	w = e.Request(http.MethodPost, "/api/auth/verify", map[string]string{"code": e.LastCode().Code}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
	user.Verified = true
	return user
}

// Login authenticates and returns the token payload. The refresh cookie is kept by the env.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, "Bearer", result.TokenType)
	require.Greater(e.T, result.ExpiresIn, 0)
	require.NotNil(e.T, e.refresh, "expected a refresh cookie")
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding, the bearer header and held cookies automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.request(method, path, body, token, false)
}

// RequestWithoutCSRF behaves like Request but never attaches the CSRF header.
func (e *Env) RequestWithoutCSRF(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.request(method, path, body, token, true)
}

func (e *Env) request(method, path string, body any, token string, skipCSRF bool) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "handler-test")
	if e.refresh != nil {
		req.AddCookie(&http.Cookie{Name: e.refresh.Name, Value: e.refresh.Value})
	}
	if e.csrfCookie != nil {
		req.AddCookie(&http.Cookie{Name: e.csrfCookie.Name, Value: e.csrfCookie.Value})
	}
	if !skipCSRF && e.csrfToken != "" {
		req.Header.Set(middleware.CSRFHeaderName, e.csrfToken)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureCookies(w.Result())
	return w
}

func (e *Env) captureCookies(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(middleware.CSRFHeaderName); token != "" {
		e.csrfToken = token
	}
	for _, c := range resp.Cookies() {
		switch c.Name {
		case middleware.CSRFCookieName:
			e.csrfCookie = c
		case e.cookieName:
			if c.MaxAge < 0 || c.Value == "" {
				e.refresh = nil
			} else {
				e.refresh = c
			}
		}
	}
}
