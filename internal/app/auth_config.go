package app

import (
	"strings"
	"time"

	"github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/services"
)

// CodecConfig converts AuthConfig into the parameters expected by the token codec.
func (c AuthConfig) CodecConfig() auth.CodecConfig {
	accessTTL := c.Access.TTL
	if accessTTL <= 0 {
		accessTTL = auth.DefaultAccessTokenTTL
	}

	return auth.CodecConfig{
		AccessSecret:  strings.TrimSpace(c.Access.Secret),
		RefreshSecret: strings.TrimSpace(c.Refresh.Secret),
		Issuer:        strings.TrimSpace(c.Access.Issuer),
		AccessTTL:     accessTTL,
		RefreshTTL:    c.refreshTTL(),
	}
}

// CookieConfig converts AuthConfig into the refresh cookie attributes.
func (c AuthConfig) CookieConfig() auth.CookieConfig {
	cookie := auth.DefaultCookieConfig(c.refreshTTL())
	if name := strings.TrimSpace(c.Refresh.CookieName); name != "" {
		cookie.Name = name
	}
	if path := strings.TrimSpace(c.Cookie.Path); path != "" {
		cookie.Path = path
	}
	cookie.Domain = strings.TrimSpace(c.Cookie.Domain)
	cookie.HTTPOnly = c.Cookie.HTTPOnly
	cookie.Secure = c.Cookie.Secure
	cookie.SameSite = auth.ParseSameSite(c.Cookie.SameSite)
	return cookie
}

// VerificationOptions converts the verification settings into service options.
// Zero values leave the service defaults in place.
func (c AuthConfig) VerificationOptions() []services.VerificationOption {
	var opts []services.VerificationOption
	if c.Verification.TTL > 0 {
		opts = append(opts, services.WithVerificationTTL(c.Verification.TTL))
	}
	if c.Verification.CodeLength > 0 {
		opts = append(opts, services.WithVerificationCodeLength(c.Verification.CodeLength))
	}
	return opts
}

// AccountConfig converts AuthConfig into AccountService tunables.
func (c AuthConfig) AccountConfig() services.AccountConfig {
	role := strings.TrimSpace(c.DefaultRole)
	if role == "" {
		role = services.DefaultRoleName
	}
	return services.AccountConfig{DefaultRole: role}
}

func (c AuthConfig) refreshTTL() time.Duration {
	if c.Refresh.TTL <= 0 {
		return auth.DefaultRefreshTokenTTL
	}
	return c.Refresh.TTL
}
