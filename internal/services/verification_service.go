package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/models"
	"github.com/charlesng35/authcore/pkg/crypto"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

const (
	defaultVerificationTTL        = 24 * time.Hour
	defaultVerificationCodeLength = 6
)

var (
	// ErrCodeInvalid indicates no verification code matches.
	ErrCodeInvalid = errors.New("verification: invalid code")
	// ErrCodeAlreadyUsed signals that the code has already been consumed.
	ErrCodeAlreadyUsed = errors.New("verification: code already used")
	// ErrCodeExpired indicates the code is past its expiry.
	ErrCodeExpired = errors.New("verification: code expired")
	// ErrCodeWrongKind indicates the code gates a different operation.
	ErrCodeWrongKind = errors.New("verification: wrong code kind")
)

// VerificationOption customises the VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationTTL overrides the code lifetime.
func WithVerificationTTL(d time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithVerificationCodeLength adjusts the number of digits in generated codes.
func WithVerificationCodeLength(n int) VerificationOption {
	return func(s *VerificationService) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithVerificationClock injects a custom time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// VerificationService issues and consumes single-use numeric codes.
type VerificationService struct {
	store      VerificationTokenStore
	ttl        time.Duration
	codeLength int
	now        func() time.Time
	log        *zap.Logger
}

// NewVerificationService constructs a verification service on top of store.
func NewVerificationService(store VerificationTokenStore, opts ...VerificationOption) (*VerificationService, error) {
	if store == nil {
		return nil, errors.New("verification service: store is required")
	}

	service := &VerificationService{
		store:      store,
		ttl:        defaultVerificationTTL,
		codeLength: defaultVerificationCodeLength,
		now:        time.Now,
		log:        logger.WithModule("verification"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// withStore returns a copy of s that persists through store.
func (s *VerificationService) withStore(store VerificationTokenStore) *VerificationService {
	clone := *s
	clone.store = store
	return &clone
}

// Issue persists a new pending code for userID and returns it for delivery.
func (s *VerificationService) Issue(ctx context.Context, userID string, kind models.VerificationKind, payload Payload) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("verification service: user id is required")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("verification service: unknown kind %q", kind)
	}
	if payload == nil {
		payload = NoPayload{}
	}
	if !payloadFits(kind, payload) {
		return "", fmt.Errorf("verification service: payload %T does not fit kind %s", payload, kind)
	}

	code, err := crypto.GenerateNumericCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("verification service: generate code: %w", err)
	}

	token := &models.VerificationToken{
		Code:      code,
		UserID:    userID,
		Kind:      kind,
		ExpiresAt: s.now().Add(s.ttl),
		Payload:   payload.encode(),
	}
	if err := s.store.Save(ctx, token); err != nil {
		return "", fmt.Errorf("verification service: %w", err)
	}

	metrics.VerificationCodes.WithLabelValues(string(kind), "issued").Inc()
	s.log.Info("verification code issued", zap.String("user_id", userID), zap.String("kind", string(kind)))
	return code, nil
}

// Consume validates code against kind and returns the token without marking it used.
// Checks run in order: unknown, used, expired, kind mismatch.
func (s *VerificationService) Consume(ctx context.Context, code string, kind models.VerificationKind) (*models.VerificationToken, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeInvalid
	}

	candidates, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("verification service: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrCodeInvalid
	}

	now := s.now()
	token := pickCandidate(candidates, kind, now)

	switch {
	case token.Used:
		return nil, ErrCodeAlreadyUsed
	case token.Expired(now):
		return nil, ErrCodeExpired
	case token.Kind != kind:
		return nil, ErrCodeWrongKind
	}
	return token, nil
}

// MarkUsed moves token to its terminal used state. It fails with
// ErrCodeAlreadyUsed when a concurrent caller got there first.
func (s *VerificationService) MarkUsed(ctx context.Context, token *models.VerificationToken) error {
	if token == nil {
		return errors.New("verification service: token is nil")
	}

	ok, err := s.store.MarkUsed(ctx, token.ID)
	if err != nil {
		return fmt.Errorf("verification service: %w", err)
	}
	if !ok {
		return ErrCodeAlreadyUsed
	}

	token.Used = true
	metrics.VerificationCodes.WithLabelValues(string(token.Kind), "used").Inc()
	return nil
}

// SweepExpired deletes codes that are both expired and used. Unused expired
// codes are kept for diagnostics.
func (s *VerificationService) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpiredAndUsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("verification service: %w", err)
	}
	return deleted, nil
}

// pickCandidate resolves colliding codes: a consumable row of the requested
// kind wins, otherwise the newest row decides which error is reported.
func pickCandidate(candidates []models.VerificationToken, kind models.VerificationKind, now time.Time) *models.VerificationToken {
	for i := range candidates {
		c := &candidates[i]
		if !c.Used && !c.Expired(now) && c.Kind == kind {
			return c
		}
	}
	return &candidates[0]
}
