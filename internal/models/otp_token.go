package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPToken is a one-time 6-digit password reset code bound to a user.
type OTPToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
	Code       string     `gorm:"size:6;not null;index" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM
func (OTPToken) TableName() string {
	return "otp_tokens"
}

func (t *OTPToken) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsExpired reports whether the code is past its expiry at now.
func (t *OTPToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsConsumed reports whether the code was already used.
func (t *OTPToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}
