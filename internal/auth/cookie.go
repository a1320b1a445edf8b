package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultRefreshCookieName is used when no cookie name is configured.
const DefaultRefreshCookieName = "refresh_token"

// CookieConfig describes the refresh token cookie.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// DefaultCookieConfig returns an HttpOnly, Secure, SameSite=Strict cookie scoped to "/".
func DefaultCookieConfig(maxAge time.Duration) CookieConfig {
	return CookieConfig{
		Name:     DefaultRefreshCookieName,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}

// ParseSameSite maps configuration strings to http.SameSite, defaulting to strict.
func ParseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func (c CookieConfig) name() string {
	if strings.TrimSpace(c.Name) == "" {
		return DefaultRefreshCookieName
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// Set attaches the refresh token cookie to w.
func (c CookieConfig) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     c.path(),
		Domain:   c.Domain,
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Clear expires the refresh token cookie on the client.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     c.path(),
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Read returns the refresh token carried by r, or "" when absent.
func (c CookieConfig) Read(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
