package notification

import (
	notificationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/notification"
)

// Repository defines the data access methods for notifications. All reads
// and mutations are scoped to the owning user.
type Repository interface {
	Create(n *notificationDatamodel.Notification) error
	ListByUser(userID int64) ([]*notificationDatamodel.Notification, error)
	UnreadCount(userID int64) (int64, error)
	MarkRead(userID, notificationID int64) error
	MarkAllRead(userID int64) error
	DeleteAll(userID int64) error
}
