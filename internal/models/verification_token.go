package models

import "time"

// VerificationKind identifies the account mutation a verification code gates.
type VerificationKind string

const (
	KindAccountActivation VerificationKind = "ACCOUNT_ACTIVATION"
	KindEmailChange       VerificationKind = "EMAIL_CHANGE"
	KindPasswordChange    VerificationKind = "PASSWORD_CHANGE"
	KindPasswordReset     VerificationKind = "PASSWORD_RESET"
)

// Valid reports whether k is a known kind.
func (k VerificationKind) Valid() bool {
	switch k {
	case KindAccountActivation, KindEmailChange, KindPasswordChange, KindPasswordReset:
		return true
	default:
		return false
	}
}

// VerificationToken is a single-use numeric code. Payload carries the deferred
// mutation (new email or new password digest) until the code is confirmed.
type VerificationToken struct {
	BaseModel

	Code      string           `gorm:"size:16;not null;index" json:"-"`
	UserID    string           `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User            `gorm:"foreignKey:UserID" json:"-"`
	Kind      VerificationKind `gorm:"size:32;not null;index" json:"kind"`
	ExpiresAt time.Time        `gorm:"index;not null" json:"expires_at"`
	Used      bool             `gorm:"default:false;not null;index" json:"used"`
	Payload   *string          `json:"-"`
}

// Expired reports whether the code is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
