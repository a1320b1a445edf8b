package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCookieSetAndClear(t *testing.T) {
	cfg := DefaultCookieConfig(7 * 24 * time.Hour)

	rec := httptest.NewRecorder()
	cfg.Set(rec, "bearer-value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	require.Equal(t, DefaultRefreshCookieName, cookie.Name)
	require.Equal(t, "bearer-value", cookie.Value)
	require.Equal(t, "/", cookie.Path)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, 7*24*60*60, cookie.MaxAge)

	rec = httptest.NewRecorder()
	cfg.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Empty(t, cleared[0].Value)
	require.Equal(t, -1, cleared[0].MaxAge)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestCookieRead(t *testing.T) {
	cfg := CookieConfig{Name: "rt"}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.Empty(t, cfg.Read(req))

	req.AddCookie(&http.Cookie{Name: "rt", Value: " token "})
	require.Equal(t, "token", cfg.Read(req))
	require.Empty(t, cfg.Read(nil))
}

func TestParseSameSite(t *testing.T) {
	require.Equal(t, http.SameSiteLaxMode, ParseSameSite("Lax"))
	require.Equal(t, http.SameSiteNoneMode, ParseSameSite("none"))
	require.Equal(t, http.SameSiteStrictMode, ParseSameSite(""))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	require.Equal(t, "203.0.113.9", ClientIP(req))

	require.Empty(t, ClientIP(nil))
}
