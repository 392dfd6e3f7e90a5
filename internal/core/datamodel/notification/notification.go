package notification

import "time"

// Notification is a fire-and-forget row insert; there is no delivery
// guarantee beyond the row existing.
type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Message   string    `gorm:"column:message;not null" json:"message"`
	IsRead    bool      `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
