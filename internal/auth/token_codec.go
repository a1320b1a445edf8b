package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenKind selects the secret and lifetime a bearer is signed with.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenMalformed covers structurally invalid tokens and claim mismatches.
	ErrTokenMalformed = errors.New("token: malformed")
	// ErrTokenExpired is returned once the exp claim has passed.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenBadSignature is returned when the signature does not verify against the secret.
	ErrTokenBadSignature = errors.New("token: bad signature")
)

// CodecConfig bundles the configuration required to build a TokenCodec.
type CodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Clock         func() time.Time
	// AllowZeroTTL keeps a zero TTL instead of falling back to the default.
	AllowZeroTTL bool
}

// Claims represents the claims embedded in issued tokens.
type Claims struct {
	Type  TokenKind      `json:"typ"`
	Extra map[string]any `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// Roles returns the role names carried under the "roles" extra claim.
func (c *Claims) Roles() []string {
	if c == nil {
		return nil
	}
	switch v := c.Extra["roles"].(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}

// TokenCodec signs and verifies access and refresh tokens. Each kind has its
// own secret so an access token never verifies as a refresh token.
type TokenCodec struct {
	secrets map[TokenKind][]byte
	ttls    map[TokenKind]time.Duration
	issuer  string
	now     func() time.Time
}

// NewTokenCodec validates the configuration and constructs a codec.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token codec: access and refresh secrets must be provided")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token codec: access and refresh secrets must differ")
	}

	accessTTL := normaliseTTL(cfg.AccessTTL, DefaultAccessTokenTTL, cfg.AllowZeroTTL)
	refreshTTL := normaliseTTL(cfg.RefreshTTL, DefaultRefreshTokenTTL, cfg.AllowZeroTTL)

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenCodec{
		secrets: map[TokenKind][]byte{
			TokenKindAccess:  []byte(cfg.AccessSecret),
			TokenKindRefresh: []byte(cfg.RefreshSecret),
		},
		ttls: map[TokenKind]time.Duration{
			TokenKindAccess:  accessTTL,
			TokenKindRefresh: refreshTTL,
		},
		issuer: cfg.Issuer,
		now:    now,
	}, nil
}

// TTL returns the configured lifetime for kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.ttls[kind]
}

// IssueAccessToken signs a short-lived token for subject carrying claims.
func (c *TokenCodec) IssueAccessToken(subject string, claims map[string]any) (string, error) {
	return c.issue(TokenKindAccess, subject, "", cloneClaims(claims))
}

// IssueRefreshToken signs a long-lived token for subject with a random token id.
func (c *TokenCodec) IssueRefreshToken(subject string) (string, error) {
	return c.issue(TokenKindRefresh, subject, uuid.NewString(), nil)
}

func (c *TokenCodec) issue(kind TokenKind, subject, id string, extra map[string]any) (string, error) {
	if subject == "" {
		return "", errors.New("token codec: subject is required")
	}

	now := c.now()
	claims := &Claims{
		Type:  kind,
		Extra: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttls[kind])),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secrets[kind])
	if err != nil {
		return "", fmt.Errorf("token codec: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses token with the secret for kind. Failures are reported as one
// of ErrTokenMalformed, ErrTokenExpired or ErrTokenBadSignature.
func (c *TokenCodec) Verify(token string, kind TokenKind) (*Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return nil, fmt.Errorf("token codec: unknown token kind %q", kind)
	}
	if token == "" {
		return nil, ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenBadSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.Type != kind {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrTokenMalformed, claims.Type)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrTokenMalformed)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	return &claims, nil
}

func normaliseTTL(ttl, fallback time.Duration, allowZero bool) time.Duration {
	if ttl < 0 || (ttl == 0 && !allowZero) {
		return fallback
	}
	return ttl
}

// cloneClaims guards against accidental external mutation of the caller's map.
func cloneClaims(claims map[string]any) map[string]any {
	if len(claims) == 0 {
		return nil
	}
	cpy := make(map[string]any, len(claims))
	for k, v := range claims {
		cpy[k] = v
	}
	return cpy
}
