package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// OverdueService tells assignees about unfinished tasks past their due date.
type OverdueService struct {
	tasks         *repository.TaskRepository
	notifications *NotificationService
	now           Clock
}

func NewOverdueService(tasks *repository.TaskRepository, notifications *NotificationService, now Clock) *OverdueService {
	return &OverdueService{tasks: tasks, notifications: notifications, now: now}
}

// Sweep creates one TASK_OVERDUE notification per assignee and task, skipping
// pairs that were already notified. It returns the number created.
func (s *OverdueService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	assignments, err := s.tasks.ListOverdueAssignments(ctx, now)
	if err != nil {
		return 0, err
	}

	tasks := make(map[uint]*model.Task)
	sent := 0
	for _, a := range assignments {
		done, err := s.notifications.AlreadySent(ctx, a.UserID, a.TaskID, model.NotifyTaskOverdue)
		if err != nil {
			return sent, err
		}
		if done {
			continue
		}

		task, ok := tasks[a.TaskID]
		if !ok {
			if task, err = s.tasks.FindByID(ctx, a.TaskID); err != nil {
				return sent, err
			}
			tasks[a.TaskID] = task
		}

		if err := s.notifications.Notify(ctx, model.Notification{
			UserID:           a.UserID,
			Title:            "Task overdue",
			Message:          overdueMessage(*task, now),
			NotificationType: model.NotifyTaskOverdue,
			ProjectID:        &task.ProjectID,
			TaskID:           &task.ID,
		}); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func overdueMessage(task model.Task, now time.Time) string {
	title := strings.TrimSpace(task.Title)
	due := task.DueDate.In(now.Location())
	late := int(now.Sub(due).Hours() / 24)
	if late < 1 {
		return fmt.Sprintf("%q was due at %s.", title, due.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("%q was due on %s, %d days ago.", title, due.Format("2006-01-02"), late)
}
