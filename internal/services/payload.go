package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/authcore/internal/models"
)

// ErrPayloadMissing is returned when a code whose kind requires a payload carries none.
var ErrPayloadMissing = errors.New("verification: payload missing")

// Payload is the deferred mutation attached to a verification code. The
// concrete type is fixed by the code kind.
type Payload interface {
	payloadKind() models.VerificationKind
	encode() *string
}

// NoPayload is carried by account activation and password reset codes.
type NoPayload struct{}

// NewEmail is the address an email change code will apply.
type NewEmail string

// NewPasswordDigest is the pre-encoded password a password change code will apply.
type NewPasswordDigest string

func (NoPayload) payloadKind() models.VerificationKind { return "" }
func (NoPayload) encode() *string                      { return nil }

func (NewEmail) payloadKind() models.VerificationKind { return models.KindEmailChange }
func (p NewEmail) encode() *string {
	v := string(p)
	return &v
}

func (NewPasswordDigest) payloadKind() models.VerificationKind { return models.KindPasswordChange }
func (p NewPasswordDigest) encode() *string {
	v := string(p)
	return &v
}

// payloadFits reports whether p may be attached to a code of kind.
func payloadFits(kind models.VerificationKind, p Payload) bool {
	if p == nil {
		p = NoPayload{}
	}
	switch kind {
	case models.KindEmailChange, models.KindPasswordChange:
		return p.payloadKind() == kind
	default:
		return p.payloadKind() == ""
	}
}

// DecodePayload reconstructs the payload stored on token according to its kind.
func DecodePayload(token *models.VerificationToken) (Payload, error) {
	if token == nil {
		return nil, errors.New("verification: token is nil")
	}

	raw := ""
	if token.Payload != nil {
		raw = strings.TrimSpace(*token.Payload)
	}

	switch token.Kind {
	case models.KindEmailChange:
		if raw == "" {
			return nil, ErrPayloadMissing
		}
		return NewEmail(raw), nil
	case models.KindPasswordChange:
		if raw == "" {
			return nil, ErrPayloadMissing
		}
		return NewPasswordDigest(raw), nil
	case models.KindAccountActivation, models.KindPasswordReset:
		return NoPayload{}, nil
	default:
		return nil, fmt.Errorf("verification: unknown kind %q", token.Kind)
	}
}
