package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title          string
	Description    string
	Priority       model.Priority
	DueDate        time.Time
	EstimatedHours *float64
	ProjectID      uint
	AssignedTo     []uint
}

// TaskChanges is a partial update; nil fields are left alone.
type TaskChanges struct {
	Title          *string
	Description    *string
	Status         *model.TaskStatus
	Priority       *model.Priority
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	Position       *uint
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks         *repository.TaskRepository
	projects      *repository.ProjectRepository
	users         *repository.UserRepository
	notifications *NotificationService
	activity      *ActivityService
	now           Clock
}

func NewTaskService(
	tasks *repository.TaskRepository,
	projects *repository.ProjectRepository,
	users *repository.UserRepository,
	notifications *NotificationService,
	activity *ActivityService,
	now Clock,
) *TaskService {
	return &TaskService{
		tasks:         tasks,
		projects:      projects,
		users:         users,
		notifications: notifications,
		activity:      activity,
		now:           now,
	}
}

// List returns the tasks visible to requester, optionally within one project.
func (s *TaskService) List(ctx context.Context, requester *model.User, projectID *uint) ([]model.Task, error) {
	return s.tasks.ListVisible(ctx, policy.TasksFor(requester), repository.TaskFilter{ProjectID: projectID})
}

func (s *TaskService) Get(ctx context.Context, requester *model.User, id uint) (*model.Task, error) {
	task, err := s.tasks.FindVisible(ctx, policy.TasksFor(requester), id)
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// Create adds a task to a project visible to requester. Assignees that are
// unknown, listed twice or already on MaxTasksPerUserPerProject tasks of the
// project are skipped and reported back.
func (s *TaskService) Create(ctx context.Context, requester *model.User, in TaskInput) (*model.Task, []SkippedAssignment, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, nil, invalid("title", "This field is required.")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, nil, invalid("description", "This field is required.")
	}
	if in.DueDate.IsZero() {
		return nil, nil, invalid("due_date", "This field is required.")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, nil, invalid("priority", fmt.Sprintf("%q is not a valid choice.", in.Priority))
	}
	if err := checkHours("estimated_hours", in.EstimatedHours); err != nil {
		return nil, nil, err
	}

	project, err := s.projects.FindVisible(ctx, policy.ProjectsFor(requester), in.ProjectID)
	switch {
	case repository.IsNotFound(err):
		return nil, nil, invalid("project", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", in.ProjectID))
	case err != nil:
		return nil, nil, err
	}

	task := model.Task{
		Title:          in.Title,
		Description:    in.Description,
		ProjectID:      project.ID,
		CreatedByID:    requester.ID,
		Status:         model.TaskTodo,
		Priority:       in.Priority,
		DueDate:        in.DueDate.UTC(),
		EstimatedHours: in.EstimatedHours,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, nil, err
	}

	skipped, err := s.assign(ctx, requester, &task, project, in.AssignedTo)
	if err != nil {
		return nil, nil, err
	}
	s.activity.Record(ctx, requester, model.ActionTaskCreate, fmt.Sprintf("Created task %q", task.Title), &project.ID, &task.ID)

	created, err := s.tasks.Load(ctx, task.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

func (s *TaskService) assign(ctx context.Context, requester *model.User, task *model.Task, project *model.Project, userIDs []uint) ([]SkippedAssignment, error) {
	skipped := []SkippedAssignment{}
	seen := make(map[uint]bool, len(userIDs))
	var notes []model.Notification

	for _, id := range userIDs {
		if seen[id] {
			skipped = append(skipped, SkippedAssignment{UserID: id, Reason: SkipDuplicate})
			continue
		}
		seen[id] = true

		user, err := s.users.FindByID(ctx, id)
		switch {
		case repository.IsNotFound(err):
			skipped = append(skipped, SkippedAssignment{UserID: id, Reason: SkipNotFound})
			continue
		case err != nil:
			return nil, err
		}

		count, err := s.users.CountTaskAssignmentsInProject(ctx, id, project.ID)
		if err != nil {
			return nil, err
		}
		if count >= MaxTasksPerUserPerProject {
			skipped = append(skipped, SkippedAssignment{UserID: id, Reason: SkipLimitReached})
			continue
		}

		assignment := model.TaskAssignment{TaskID: task.ID, UserID: user.ID, AssignedByID: requester.ID}
		if err := s.tasks.CreateAssignment(ctx, &assignment); err != nil {
			return nil, err
		}
		notes = append(notes, model.Notification{
			UserID:           user.ID,
			Title:            "New task assigned",
			Message:          fmt.Sprintf("You were assigned %q in project %q.", task.Title, project.Name),
			NotificationType: model.NotifyTaskAssigned,
			ProjectID:        &project.ID,
			TaskID:           &task.ID,
		})
	}

	s.notifications.notifyAll(ctx, notes)
	return skipped, nil
}

// Update applies ch to a visible task. Status changes go through
// Task.SyncCompletion; finishing a task notifies its creator.
func (s *TaskService) Update(ctx context.Context, requester *model.User, id uint, ch TaskChanges) (*model.Task, error) {
	task, err := s.tasks.FindVisible(ctx, policy.TasksFor(requester), id)
	if err != nil {
		return nil, translate(err)
	}
	wasDone := task.Status == model.TaskDone

	if ch.Title != nil {
		title := strings.TrimSpace(*ch.Title)
		if title == "" {
			return nil, invalid("title", "This field may not be blank.")
		}
		task.Title = title
	}
	if ch.Description != nil {
		if strings.TrimSpace(*ch.Description) == "" {
			return nil, invalid("description", "This field may not be blank.")
		}
		task.Description = *ch.Description
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, invalid("status", fmt.Sprintf("%q is not a valid choice.", *ch.Status))
		}
		task.Status = *ch.Status
	}
	if ch.Priority != nil {
		if !ch.Priority.Valid() {
			return nil, invalid("priority", fmt.Sprintf("%q is not a valid choice.", *ch.Priority))
		}
		task.Priority = *ch.Priority
	}
	if ch.DueDate != nil {
		task.DueDate = ch.DueDate.UTC()
	}
	if ch.EstimatedHours != nil {
		if err := checkHours("estimated_hours", ch.EstimatedHours); err != nil {
			return nil, err
		}
		task.EstimatedHours = ch.EstimatedHours
	}
	if ch.ActualHours != nil {
		if err := checkHours("actual_hours", ch.ActualHours); err != nil {
			return nil, err
		}
		task.ActualHours = ch.ActualHours
	}
	if ch.Position != nil {
		task.Position = *ch.Position
	}

	task.SyncCompletion(s.now())
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, requester, model.ActionTaskUpdate, fmt.Sprintf("Updated task %q", task.Title), &task.ProjectID, &task.ID)

	if !wasDone && task.Status == model.TaskDone && task.CreatedByID != requester.ID {
		s.notifications.notifyAll(ctx, []model.Notification{{
			UserID:           task.CreatedByID,
			Title:            "Task completed",
			Message:          fmt.Sprintf("%s completed %q.", requester.FullName(), task.Title),
			NotificationType: model.NotifyTaskCompleted,
			ProjectID:        &task.ProjectID,
			TaskID:           &task.ID,
		}})
	}

	return s.tasks.Load(ctx, task.ID)
}

func (s *TaskService) Delete(ctx context.Context, requester *model.User, id uint) error {
	task, err := s.tasks.FindVisible(ctx, policy.TasksFor(requester), id)
	if err != nil {
		return translate(err)
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return translate(err)
	}
	s.activity.Record(ctx, requester, model.ActionTaskDelete, fmt.Sprintf("Deleted task %q", task.Title), &task.ProjectID, nil)
	return nil
}

func checkHours(field string, h *float64) error {
	if h == nil {
		return nil
	}
	if *h < 0 || *h >= 1000 || math.IsNaN(*h) {
		return invalid(field, "Ensure this value is between 0 and 999.99.")
	}
	return nil
}
