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

// ProjectInput represents data required to create a project.
type ProjectInput struct {
	Name          string
	Description   string
	Status        model.ProjectStatus
	Priority      model.Priority
	Budget        *float64
	StartDate     time.Time
	EndDate       time.Time
	ClientID      uint
	AssignedUsers []uint
}

// ProjectChanges is a partial update; nil fields are left alone.
type ProjectChanges struct {
	Name        *string
	Description *string
	Status      *model.ProjectStatus
	Priority    *model.Priority
	Budget      *float64
	StartDate   *time.Time
	EndDate     *time.Time
	ClientID    *uint
}

// Board is a project's tasks split into kanban columns.
type Board struct {
	Project *model.Project
	Columns map[model.TaskStatus][]model.Task
}

// ProjectService wraps project-related business logic.
type ProjectService struct {
	projects      *repository.ProjectRepository
	tasks         *repository.TaskRepository
	users         *repository.UserRepository
	notifications *NotificationService
	activity      *ActivityService
}

func NewProjectService(
	projects *repository.ProjectRepository,
	tasks *repository.TaskRepository,
	users *repository.UserRepository,
	notifications *NotificationService,
	activity *ActivityService,
) *ProjectService {
	return &ProjectService{
		projects:      projects,
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		activity:      activity,
	}
}

// List returns the projects visible to requester, newest first.
func (s *ProjectService) List(ctx context.Context, requester *model.User, status model.ProjectStatus) ([]model.Project, error) {
	return s.projects.ListVisible(ctx, policy.ProjectsFor(requester), repository.ProjectFilter{Status: status})
}

func (s *ProjectService) Get(ctx context.Context, requester *model.User, id uint) (*model.Project, error) {
	project, err := s.projects.FindVisible(ctx, policy.ProjectsFor(requester), id)
	if err != nil {
		return nil, translate(err)
	}
	return project, nil
}

// Create stores a project owned by requester and assigns the listed users.
// Users that are unknown, listed twice or already on MaxProjectsPerUser
// projects are skipped and reported back.
func (s *ProjectService) Create(ctx context.Context, requester *model.User, in ProjectInput) (*model.Project, []SkippedAssignment, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, nil, invalid("name", "This field is required.")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, nil, invalid("description", "This field is required.")
	}
	if in.StartDate.IsZero() {
		return nil, nil, invalid("start_date", "This field is required.")
	}
	if in.EndDate.IsZero() {
		return nil, nil, invalid("end_date", "This field is required.")
	}
	if in.Status == "" {
		in.Status = model.ProjectPlanning
	}
	if !in.Status.Valid() {
		return nil, nil, invalid("status", fmt.Sprintf("%q is not a valid choice.", in.Status))
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, nil, invalid("priority", fmt.Sprintf("%q is not a valid choice.", in.Priority))
	}
	budget, err := normalizeBudget(in.Budget)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkClient(ctx, in.ClientID); err != nil {
		return nil, nil, err
	}

	project := model.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Budget:      budget,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		CreatedByID: requester.ID,
		ClientID:    in.ClientID,
	}
	if err := s.projects.Create(ctx, &project); err != nil {
		return nil, nil, err
	}

	skipped, err := s.assign(ctx, requester, &project, in.AssignedUsers)
	if err != nil {
		return nil, nil, err
	}
	s.activity.Record(ctx, requester, model.ActionProjectCreate, fmt.Sprintf("Created project %q", project.Name), &project.ID, nil)

	created, err := s.projects.Load(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, skipped, nil
}

func (s *ProjectService) assign(ctx context.Context, requester *model.User, project *model.Project, userIDs []uint) ([]SkippedAssignment, error) {
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

		count, err := s.users.CountProjectAssignments(ctx, id)
		if err != nil {
			return nil, err
		}
		if count >= MaxProjectsPerUser {
			skipped = append(skipped, SkippedAssignment{UserID: id, Reason: SkipLimitReached})
			continue
		}

		assignment := model.ProjectAssignment{
			ProjectID:     project.ID,
			UserID:        user.ID,
			AssignedByID:  requester.ID,
			RoleInProject: model.RoleInProjectFor(user.Role),
		}
		if err := s.projects.CreateAssignment(ctx, &assignment); err != nil {
			return nil, err
		}
		notes = append(notes, model.Notification{
			UserID:           user.ID,
			Title:            "Added to project",
			Message:          fmt.Sprintf("You were added to project %q.", project.Name),
			NotificationType: model.NotifyProjectAssigned,
			ProjectID:        &project.ID,
		})
	}

	s.notifications.notifyAll(ctx, notes)
	return skipped, nil
}

func (s *ProjectService) Update(ctx context.Context, requester *model.User, id uint, ch ProjectChanges) (*model.Project, error) {
	project, err := s.projects.FindVisible(ctx, policy.ProjectsFor(requester), id)
	if err != nil {
		return nil, translate(err)
	}
	wasCompleted := project.Status == model.ProjectCompleted

	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return nil, invalid("name", "This field may not be blank.")
		}
		project.Name = name
	}
	if ch.Description != nil {
		if strings.TrimSpace(*ch.Description) == "" {
			return nil, invalid("description", "This field may not be blank.")
		}
		project.Description = *ch.Description
	}
	if ch.Status != nil {
		if !ch.Status.Valid() {
			return nil, invalid("status", fmt.Sprintf("%q is not a valid choice.", *ch.Status))
		}
		project.Status = *ch.Status
	}
	if ch.Priority != nil {
		if !ch.Priority.Valid() {
			return nil, invalid("priority", fmt.Sprintf("%q is not a valid choice.", *ch.Priority))
		}
		project.Priority = *ch.Priority
	}
	if ch.Budget != nil {
		budget, err := normalizeBudget(ch.Budget)
		if err != nil {
			return nil, err
		}
		project.Budget = budget
	}
	if ch.StartDate != nil {
		project.StartDate = ch.StartDate.UTC()
	}
	if ch.EndDate != nil {
		project.EndDate = ch.EndDate.UTC()
	}
	if ch.ClientID != nil {
		if err := s.checkClient(ctx, *ch.ClientID); err != nil {
			return nil, err
		}
		project.ClientID = *ch.ClientID
	}

	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, requester, model.ActionProjectUpdate, fmt.Sprintf("Updated project %q", project.Name), &project.ID, nil)

	if !wasCompleted && project.Status == model.ProjectCompleted {
		var notes []model.Notification
		for _, u := range project.AssignedUsers() {
			notes = append(notes, model.Notification{
				UserID:           u.ID,
				Title:            "Project completed",
				Message:          fmt.Sprintf("Project %q was marked as completed.", project.Name),
				NotificationType: model.NotifyProjectCompleted,
				ProjectID:        &project.ID,
			})
		}
		s.notifications.notifyAll(ctx, notes)
	}

	return s.projects.Load(ctx, project.ID)
}

// Delete removes a visible project with everything that belongs to it.
func (s *ProjectService) Delete(ctx context.Context, requester *model.User, id uint) error {
	project, err := s.projects.FindVisible(ctx, policy.ProjectsFor(requester), id)
	if err != nil {
		return translate(err)
	}
	if err := s.projects.Delete(ctx, project.ID); err != nil {
		return translate(err)
	}
	s.activity.Record(ctx, requester, model.ActionProjectDelete, fmt.Sprintf("Deleted project %q", project.Name), nil, nil)
	return nil
}

// Kanban groups the tasks of a visible project by status.
func (s *ProjectService) Kanban(ctx context.Context, requester *model.User, id uint) (*Board, error) {
	project, err := s.projects.FindVisible(ctx, policy.ProjectsFor(requester), id)
	if err != nil {
		return nil, translate(err)
	}
	tasks, err := s.tasks.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	board := &Board{Project: project, Columns: make(map[model.TaskStatus][]model.Task, len(model.KanbanColumns))}
	for _, status := range model.KanbanColumns {
		board.Columns[status] = []model.Task{}
	}
	for _, task := range tasks {
		board.Columns[task.Status] = append(board.Columns[task.Status], task)
	}
	return board, nil
}

func (s *ProjectService) checkClient(ctx context.Context, id uint) error {
	if id == 0 {
		return invalid("client", "This field is required.")
	}
	client, err := s.users.FindByID(ctx, id)
	switch {
	case repository.IsNotFound(err):
		return invalid("client", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	case err != nil:
		return err
	}
	if client.Role != model.RoleClient {
		return invalid("client", "Selected user is not a client.")
	}
	return nil
}

func normalizeBudget(b *float64) (*float64, error) {
	if b == nil {
		return nil, nil
	}
	if *b < 0 || math.IsNaN(*b) || math.IsInf(*b, 0) {
		return nil, invalid("budget", "Ensure this value is greater than or equal to 0.")
	}
	rounded := math.Round(*b*100) / 100
	return &rounded, nil
}
