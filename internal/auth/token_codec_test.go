package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, clock *testClock, mutate ...func(*CodecConfig)) *TokenCodec {
	t.Helper()

	cfg := CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "authcore-test",
		AccessTTL:     5 * time.Minute,
		RefreshTTL:    time.Hour,
		Clock:         clock.Now,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	codec, err := NewTokenCodec(cfg)
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodecValidation(t *testing.T) {
	_, err := NewTokenCodec(CodecConfig{AccessSecret: "a"})
	require.Error(t, err)

	_, err = NewTokenCodec(CodecConfig{AccessSecret: "same", RefreshSecret: "same"})
	require.ErrorContains(t, err, "must differ")

	codec, err := NewTokenCodec(CodecConfig{AccessSecret: "a", RefreshSecret: "b"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, codec.TTL(TokenKindAccess))
	require.Equal(t, DefaultRefreshTokenTTL, codec.TTL(TokenKindRefresh))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock)

	token, err := codec.IssueAccessToken("user-1", map[string]any{"roles": []string{"USER", "ADMIN"}, "tenant": "acme"})
	require.NoError(t, err)

	claims, err := codec.Verify(token, TokenKindAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "acme", claims.Extra["tenant"])
	require.Equal(t, []string{"USER", "ADMIN"}, claims.Roles())
	require.Equal(t, "authcore-test", claims.Issuer)
	require.Equal(t, clock.Now().Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestRefreshTokensCarryUniqueIDs(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock)

	first, err := codec.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, err := codec.IssueRefreshToken("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	claims, err := codec.Verify(first, TokenKindRefresh)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, TokenKindRefresh, claims.Type)
}

func TestZeroTTLTokenExpiresAfterTick(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock, func(cfg *CodecConfig) {
		cfg.AccessTTL = 0
		cfg.AllowZeroTTL = true
	})

	token, err := codec.IssueAccessToken("user-1", nil)
	require.NoError(t, err)

	clock.Advance(time.Second)

	_, err = codec.Verify(token, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsCrossKindUse(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock)

	access, err := codec.IssueAccessToken("user-1", nil)
	require.NoError(t, err)

	_, err = codec.Verify(access, TokenKindRefresh)
	require.ErrorIs(t, err, ErrTokenBadSignature)

	refresh, err := codec.IssueRefreshToken("user-1")
	require.NoError(t, err)

	_, err = codec.Verify(refresh, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenBadSignature)
}

func TestVerifyFailureKinds(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock)

	_, err := codec.Verify("", TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = codec.Verify("not-a-jwt", TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)

	token, err := codec.IssueAccessToken("user-1", nil)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".c2lnbmF0dXJl"
	_, err = codec.Verify(tampered, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenBadSignature)

	clock.Advance(6 * time.Minute)
	_, err = codec.Verify(token, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsForeignIssuerAndAlgorithm(t *testing.T) {
	clock := newTestClock(time.Now())
	codec := newTestCodec(t, clock)
	other := newTestCodec(t, clock, func(cfg *CodecConfig) { cfg.Issuer = "someone-else" })

	token, err := other.IssueAccessToken("user-1", nil)
	require.NoError(t, err)
	_, err = codec.Verify(token, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Type: TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(unsigned, TokenKindAccess)
	require.ErrorIs(t, err, ErrTokenBadSignature)
}
