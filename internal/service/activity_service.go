package service

import (
	"context"
	"log"

	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const recentActivityLimit = 100

// ActivityService writes and reads the audit log.
type ActivityService struct {
	repo *repository.ActivityRepository
}

func NewActivityService(repo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record appends an entry for actor. Failures are logged, never returned.
func (s *ActivityService) Record(ctx context.Context, actor *model.User, action, description string, projectID, taskID *uint) {
	entry := model.ActivityLog{
		UserID:      actor.ID,
		Action:      action,
		Description: description,
		ProjectID:   projectID,
		TaskID:      taskID,
	}
	if ip := ClientIP(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		log.Printf("[warn] record activity %s for user %d: %v", action, actor.ID, err)
	}
}

// Recent returns the latest audit entries; admins only.
func (s *ActivityService) Recent(ctx context.Context, requester *model.User) ([]model.ActivityLog, error) {
	if !policy.CanReadActivity(requester.Role) {
		return nil, ErrPermissionDenied
	}
	return s.repo.ListRecent(ctx, recentActivityLimit)
}
