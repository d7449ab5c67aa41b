package service

import (
	"context"
	"fmt"
	"strings"

	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

// CommentService manages discussion on tasks.
type CommentService struct {
	tasks         *repository.TaskRepository
	comments      *repository.CommentRepository
	notifications *NotificationService
}

func NewCommentService(tasks *repository.TaskRepository, comments *repository.CommentRepository, notifications *NotificationService) *CommentService {
	return &CommentService{tasks: tasks, comments: comments, notifications: notifications}
}

// List returns the comments of a visible task, newest first.
func (s *CommentService) List(ctx context.Context, requester *model.User, taskID uint) ([]model.TaskComment, error) {
	task, err := s.tasks.FindVisible(ctx, policy.TasksFor(requester), taskID)
	if err != nil {
		return nil, translate(err)
	}
	return s.comments.ListByTask(ctx, task.ID)
}

// Add posts a comment and lets the creator and assignees of the task know.
func (s *CommentService) Add(ctx context.Context, requester *model.User, taskID uint, content, attachment string) (*model.TaskComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "This field is required.")
	}
	task, err := s.tasks.FindVisible(ctx, policy.TasksFor(requester), taskID)
	if err != nil {
		return nil, translate(err)
	}

	comment := model.TaskComment{
		TaskID:     task.ID,
		UserID:     requester.ID,
		Content:    content,
		Attachment: strings.TrimSpace(attachment),
	}
	if err := s.comments.Create(ctx, &comment); err != nil {
		return nil, err
	}
	comment.User = requester

	recipients := []uint{task.CreatedByID}
	for _, a := range task.Assignments {
		recipients = append(recipients, a.UserID)
	}
	seen := map[uint]bool{requester.ID: true}
	var notes []model.Notification
	for _, id := range recipients {
		if seen[id] {
			continue
		}
		seen[id] = true
		notes = append(notes, model.Notification{
			UserID:           id,
			Title:            "New comment",
			Message:          fmt.Sprintf("%s commented on %q.", requester.FullName(), task.Title),
			NotificationType: model.NotifyCommentAdded,
			ProjectID:        &task.ProjectID,
			TaskID:           &task.ID,
		})
	}
	s.notifications.notifyAll(ctx, notes)

	return &comment, nil
}
