package passwordreset

import "time"

// PasswordResetSMS holds one OTP issuance. Codes are bcrypt-hashed at rest;
// issuing a new code marks previous unused codes as used.
type PasswordResetSMS struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Phone       string    `gorm:"column:phone;not null" json:"phone"`
	CodeHash    string    `gorm:"column:code_hash;not null" json:"-"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	Attempts    int       `gorm:"column:attempts;default:0" json:"attempts"`
	MaxAttempts int       `gorm:"column:max_attempts;default:5" json:"max_attempts"`
	Used        bool      `gorm:"column:used;default:false" json:"used"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PasswordResetSMS) TableName() string { return "password_resets" }

// CanAttempt reports whether another verification attempt is allowed.
func (p *PasswordResetSMS) CanAttempt(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt) && p.Attempts < p.MaxAttempts
}
