package models

import "time"

// OneTimePasscode is the single live passcode for a user. The unique index on
// UserID enforces one row per user; issuing a new code overwrites the row so
// the last issued code always wins.
type OneTimePasscode struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Code   string `gorm:"not null" json:"-"`

	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	RemainingAttempts int  `gorm:"not null" json:"remaining_attempts"`
	Consumed          bool `gorm:"not null;default:false" json:"consumed"`
}

// Live reports whether the passcode can still be validated at the given time.
func (p *OneTimePasscode) Live(now time.Time) bool {
	return !p.Consumed && p.RemainingAttempts > 0 && now.Before(p.ExpiresAt)
}
