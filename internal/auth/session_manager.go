package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

const defaultSessionCacheTTL = 5 * time.Minute

var (
	// ErrSessionNotFound indicates that no active session matches the token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionInvalidToken is returned when the bearer fails signature or expiry checks.
	ErrSessionInvalidToken = errors.New("session: invalid token")
	// ErrSessionReused signals that a refresh token was rotated twice. Every
	// session of the owner has been revoked when this is returned.
	ErrSessionReused = errors.New("session: refresh token reused")
)

// SessionConfig describes tunable behaviour for the SessionManager.
type SessionConfig struct {
	Clock    func() time.Time
	Cache    SessionCache
	CacheTTL time.Duration
}

// SessionSummary is the client-visible view of a session. It never carries the token.
type SessionSummary struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SessionManager issues, rotates and revokes refresh token sessions.
type SessionManager struct {
	store    RefreshTokenStore
	codec    *TokenCodec
	now      func() time.Time
	cache    SessionCache
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewSessionManager constructs a session manager on top of the store and codec.
func NewSessionManager(store RefreshTokenStore, codec *TokenCodec, cfg SessionConfig) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("session manager: store is required")
	}
	if codec == nil {
		return nil, errors.New("session manager: token codec is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultSessionCacheTTL
	}

	return &SessionManager{
		store:    store,
		codec:    codec,
		now:      clock,
		cache:    cfg.Cache,
		cacheTTL: cacheTTL,
		log:      logger.WithModule("session"),
	}, nil
}

// RefreshTTL reports the lifetime of newly minted refresh tokens.
func (m *SessionManager) RefreshTTL() time.Duration {
	return m.codec.TTL(TokenKindRefresh)
}

// CreateSession mints a refresh bearer for userID and persists its digest with
// client metadata taken from r.
func (m *SessionManager) CreateSession(ctx context.Context, userID, deviceInfo string, r *http.Request) (string, *models.RefreshToken, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, errors.New("session manager: user id is required")
	}

	bearer, err := m.codec.IssueRefreshToken(userID)
	if err != nil {
		return "", nil, fmt.Errorf("session manager: issue refresh token: %w", err)
	}

	now := m.now()
	row := &models.RefreshToken{
		UserID:     userID,
		TokenHash:  crypto.HashToken(bearer),
		ExpiresAt:  now.Add(m.RefreshTTL()),
		DeviceInfo: strings.TrimSpace(deviceInfo),
		IPAddress:  ClientIP(r),
		LastUsedAt: &now,
	}
	if r != nil {
		row.UserAgent = strings.TrimSpace(r.UserAgent())
	}

	if err := m.store.Save(ctx, row); err != nil {
		return "", nil, fmt.Errorf("session manager: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()
	return bearer, row, nil
}

// ValidateSession checks the bearer signature and expiry, then requires a
// matching active row. A token revoked in the store fails even while its
// signature is still valid.
func (m *SessionManager) ValidateSession(ctx context.Context, bearer string) (*models.RefreshToken, error) {
	row, err := m.lookup(ctx, bearer)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if err := m.store.Touch(ctx, row.ID, now); err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	row.LastUsedAt = &now
	return row, nil
}

// RotateSession revokes the presented token and issues a replacement for the
// same user. The old row is revoked before the new one is created; a crash
// between the two leaves the user signed out rather than holding two sessions.
func (m *SessionManager) RotateSession(ctx context.Context, bearer, deviceInfo string, r *http.Request) (string, *models.RefreshToken, error) {
	row, err := m.ValidateSession(ctx, bearer)
	if err != nil {
		metrics.SessionRotations.WithLabelValues("invalid").Inc()
		return "", nil, err
	}

	revoked, err := m.store.RevokeIfActive(ctx, row.ID, m.now())
	if err != nil {
		return "", nil, fmt.Errorf("session manager: %w", err)
	}
	m.invalidate(ctx, row.TokenHash)

	if !revoked {
		metrics.SessionRotations.WithLabelValues("reused").Inc()
		m.log.Warn("refresh token presented twice; revoking all sessions", zap.String("user_id", row.UserID))
		if _, err := m.RevokeAllSessions(ctx, row.UserID); err != nil {
			return "", nil, fmt.Errorf("session manager: revoke after reuse: %w", err)
		}
		return "", nil, ErrSessionReused
	}
	metrics.ActiveSessions.Dec()

	if deviceInfo == "" {
		deviceInfo = row.DeviceInfo
	}
	next, nextRow, err := m.CreateSession(ctx, row.UserID, deviceInfo, r)
	if err != nil {
		return "", nil, err
	}

	metrics.SessionRotations.WithLabelValues("rotated").Inc()
	return next, nextRow, nil
}

// RevokeSession revokes the session behind bearer. Invalid, unknown or already
// revoked tokens are a no-op; only store failures are returned.
func (m *SessionManager) RevokeSession(ctx context.Context, bearer string) error {
	row, err := m.lookup(ctx, bearer)
	if errors.Is(err, ErrSessionInvalidToken) || errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.revokeRow(ctx, row)
}

// RevokeSessionByID revokes one active session owned by userID.
func (m *SessionManager) RevokeSessionByID(ctx context.Context, userID, sessionID string) error {
	rows, err := m.store.FindAllActiveForUser(ctx, userID, m.now())
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	for i := range rows {
		if rows[i].ID == sessionID {
			return m.revokeRow(ctx, &rows[i])
		}
	}
	return ErrSessionNotFound
}

// RevokeAllSessions revokes every active session of userID.
func (m *SessionManager) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	rows, err := m.store.FindAllActiveForUser(ctx, userID, m.now())
	if err != nil {
		return 0, fmt.Errorf("session manager: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ids := make([]string, len(rows))
	hashes := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		hashes[i] = row.TokenHash
	}

	count, err := m.store.BulkRevoke(ctx, ids, m.now())
	if err != nil {
		return 0, fmt.Errorf("session manager: %w", err)
	}
	m.invalidate(ctx, hashes...)
	metrics.ActiveSessions.Sub(float64(count))

	m.log.Info("sessions revoked", zap.String("user_id", userID), zap.Int64("count", count))
	return count, nil
}

// ListSessions returns the active sessions of userID, most recently used first.
func (m *SessionManager) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	rows, err := m.store.FindAllActiveForUser(ctx, userID, m.now())
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(rows))
	for _, row := range rows {
		lastUsed := row.CreatedAt
		if row.LastUsedAt != nil {
			lastUsed = *row.LastUsedAt
		}
		summaries = append(summaries, SessionSummary{
			ID:         row.ID,
			DeviceInfo: row.DeviceInfo,
			IPAddress:  row.IPAddress,
			UserAgent:  row.UserAgent,
			CreatedAt:  row.CreatedAt,
			LastUsedAt: lastUsed,
			ExpiresAt:  row.ExpiresAt,
		})
	}
	return summaries, nil
}

// SweepExpired deletes every expired row regardless of revocation and
// resynchronises the active session gauge.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	now := m.now()
	deleted, err := m.store.DeleteAllExpiredBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("session manager: %w", err)
	}
	if active, err := m.store.CountActive(ctx, now); err == nil {
		metrics.ActiveSessions.Set(float64(active))
	}
	return deleted, nil
}

func (m *SessionManager) lookup(ctx context.Context, bearer string) (*models.RefreshToken, error) {
	bearer = strings.TrimSpace(bearer)
	claims, err := m.codec.Verify(bearer, TokenKindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalidToken, err)
	}

	now := m.now()
	hash := crypto.HashToken(bearer)

	if m.cache != nil {
		cached, cacheErr := m.cache.Get(ctx, hash)
		switch {
		case cacheErr == nil && cached.UserID == claims.Subject && cached.Active(now):
			return cached, nil
		case cacheErr != nil && !errors.Is(cacheErr, errSessionCacheMiss):
			m.log.Warn("session cache read failed", zap.Error(cacheErr))
		}
	}

	row, err := m.store.FindActiveByHashAndUser(ctx, hash, claims.Subject, now)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		ttl := row.ExpiresAt.Sub(now)
		if ttl > m.cacheTTL {
			ttl = m.cacheTTL
		}
		if err := m.cache.Set(ctx, hash, row, ttl); err != nil {
			m.log.Warn("session cache write failed", zap.Error(err))
		}
	}
	return row, nil
}

func (m *SessionManager) revokeRow(ctx context.Context, row *models.RefreshToken) error {
	revoked, err := m.store.RevokeIfActive(ctx, row.ID, m.now())
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}
	m.invalidate(ctx, row.TokenHash)
	if revoked {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

func (m *SessionManager) invalidate(ctx context.Context, hashes ...string) {
	if m.cache == nil || len(hashes) == 0 {
		return
	}
	if err := m.cache.Delete(ctx, hashes...); err != nil {
		m.log.Warn("session cache invalidation failed", zap.Error(err))
	}
}
