package notification

import (
	"log/slog"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	notificationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/notification"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Notify inserts a notification row for the user. Failures are logged and
// swallowed: notifications are best-effort and never fail the operation
// that produced them.
func (s *Service) Notify(userID int64, message string) {
	n := &notificationDatamodel.Notification{
		UserID:  userID,
		Message: message,
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to write notification", "error", err, "user_id", userID)
	}
}

func (s *Service) List(actor authz.Identity) ([]*notificationDatamodel.Notification, error) {
	return s.repo.ListByUser(actor.UserID)
}

func (s *Service) UnreadCount(actor authz.Identity) (int64, error) {
	return s.repo.UnreadCount(actor.UserID)
}

// MarkRead flips a single notification owned by the actor. Marking someone
// else's notification is indistinguishable from marking a missing one.
func (s *Service) MarkRead(actor authz.Identity, notificationID int64) error {
	if err := s.repo.MarkRead(actor.UserID, notificationID); err != nil {
		return internal.NewInternalError("failed to mark notification read", err)
	}
	return nil
}

func (s *Service) MarkAllRead(actor authz.Identity) error {
	if err := s.repo.MarkAllRead(actor.UserID); err != nil {
		return internal.NewInternalError("failed to mark notifications read", err)
	}
	return nil
}

func (s *Service) DeleteAll(actor authz.Identity) error {
	if err := s.repo.DeleteAll(actor.UserID); err != nil {
		return internal.NewInternalError("failed to delete notifications", err)
	}
	return nil
}
