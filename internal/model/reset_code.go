package model

import "time"

// PasswordResetCode is a short-lived single-use 6-digit credential.
type PasswordResetCode struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Code      string    `gorm:"size:6;not null"`
	CreatedAt time.Time `gorm:"index"`
	IsUsed    bool      `gorm:"default:false"`
}

// Expired reports whether now is past the code's validity window.
func (c PasswordResetCode) Expired(now time.Time, ttl time.Duration) bool {
	return now.After(c.CreatedAt.Add(ttl))
}
