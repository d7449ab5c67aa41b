package service

import (
	"context"
	"log"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// Dispatcher pushes a stored notification to an outside channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, n model.Notification) error
}

// NotificationService owns the per-user inbox.
type NotificationService struct {
	repo       *repository.NotificationRepository
	dispatcher Dispatcher
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetDispatcher must be called before the service is shared.
func (s *NotificationService) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// Notify stores n and hands it to the dispatcher, if any.
func (s *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if err := s.repo.Create(ctx, &n); err != nil {
		return err
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			log.Printf("[warn] dispatch notification %d to user %d: %v", n.ID, n.UserID, err)
		}
	}
	return nil
}

// notifyAll is used by write paths where a failed notification must not fail the write.
func (s *NotificationService) notifyAll(ctx context.Context, items []model.Notification) {
	for _, n := range items {
		if err := s.Notify(ctx, n); err != nil {
			log.Printf("[warn] notify user %d (%s): %v", n.UserID, n.NotificationType, err)
		}
	}
}

func (s *NotificationService) List(ctx context.Context, user *model.User) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *NotificationService) MarkRead(ctx context.Context, user *model.User, id uint) error {
	return translate(s.repo.MarkRead(ctx, user.ID, id))
}

// AlreadySent reports whether userID has a notification of kind about taskID.
func (s *NotificationService) AlreadySent(ctx context.Context, userID, taskID uint, kind model.NotificationType) (bool, error) {
	return s.repo.Exists(ctx, userID, taskID, kind)
}
