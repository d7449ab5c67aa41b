package service

import (
	"context"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const (
	recentTasksLimit    = 10
	activeProjectsLimit = 5
	systemIssueWindow   = 7 * 24 * time.Hour
)

// Stats is a role-specific set of named counters.
type Stats map[string]int64

type statsFunc func(ctx context.Context, s *DashboardService, u *model.User) (Stats, error)

var statsByRole = map[model.Role]statsFunc{
	model.RoleAdmin:        adminStats,
	model.RoleManager:      managerStats,
	model.RoleCollaborator: collaboratorStats,
	model.RoleClient:       clientStats,
}

// DashboardService computes per-role summaries on every call.
type DashboardService struct {
	users    *repository.UserRepository
	projects *repository.ProjectRepository
	tasks    *repository.TaskRepository
	activity *repository.ActivityRepository
	now      Clock
}

func NewDashboardService(
	users *repository.UserRepository,
	projects *repository.ProjectRepository,
	tasks *repository.TaskRepository,
	activity *repository.ActivityRepository,
	now Clock,
) *DashboardService {
	return &DashboardService{users: users, projects: projects, tasks: tasks, activity: activity, now: now}
}

// Stats returns the counters for u's role; unknown roles get none.
func (s *DashboardService) Stats(ctx context.Context, u *model.User) (Stats, error) {
	fn, ok := statsByRole[u.Role]
	if !ok {
		return Stats{}, nil
	}
	return fn(ctx, s, u)
}

// RecentTasks returns the first visible tasks in natural order.
func (s *DashboardService) RecentTasks(ctx context.Context, u *model.User) ([]model.Task, error) {
	return s.tasks.ListVisible(ctx, policy.TasksFor(u), repository.TaskFilter{Limit: recentTasksLimit})
}

// ActiveProjects returns the newest visible ACTIVE projects.
func (s *DashboardService) ActiveProjects(ctx context.Context, u *model.User) ([]model.Project, error) {
	return s.projects.ListVisible(ctx, policy.ProjectsFor(u), repository.ProjectFilter{
		Status: model.ProjectActive,
		Limit:  activeProjectsLimit,
	})
}

// counter collects counts and keeps the first error.
type counter struct {
	ctx   context.Context
	s     *DashboardService
	stats Stats
	err   error
}

func (c *counter) projects(key string, scope policy.Scope, status model.ProjectStatus) {
	if c.err != nil {
		return
	}
	c.stats[key], c.err = c.s.projects.CountVisible(c.ctx, scope, status)
}

func (c *counter) tasks(key string, scope policy.Scope, filter repository.TaskFilter) {
	if c.err != nil {
		return
	}
	c.stats[key], c.err = c.s.tasks.CountVisible(c.ctx, scope, filter)
}

func (s *DashboardService) counter(ctx context.Context) *counter {
	return &counter{ctx: ctx, s: s, stats: Stats{}}
}

func statuses(st ...model.TaskStatus) repository.TaskFilter {
	return repository.TaskFilter{Statuses: st}
}

// overdue matches unfinished work (TODO or IN_PROGRESS) due before now.
func overdue(now time.Time) repository.TaskFilter {
	return repository.TaskFilter{
		Statuses:  []model.TaskStatus{model.TaskTodo, model.TaskInProgress},
		DueBefore: &now,
	}
}

func adminStats(ctx context.Context, s *DashboardService, u *model.User) (Stats, error) {
	c := s.counter(ctx)
	projects, tasks := policy.ProjectsFor(u), policy.TasksFor(u)

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	c.stats["total_users"] = total
	c.projects("active_projects", projects, model.ProjectActive)
	c.tasks("total_tasks", tasks, repository.TaskFilter{})
	c.tasks("completed_tasks", tasks, statuses(model.TaskDone))
	if c.err != nil {
		return nil, c.err
	}

	issues, err := s.activity.CountActionContaining(ctx, "error", s.now().Add(-systemIssueWindow))
	if err != nil {
		return nil, err
	}
	c.stats["system_issues"] = issues
	return c.stats, nil
}

func managerStats(ctx context.Context, s *DashboardService, u *model.User) (Stats, error) {
	c := s.counter(ctx)
	projects, tasks := policy.ProjectsFor(u), policy.TasksFor(u)

	c.projects("managed_projects", projects, "")
	c.projects("active_projects", projects, model.ProjectActive)
	c.tasks("team_tasks", tasks, repository.TaskFilter{})
	c.tasks("completed_tasks", tasks, statuses(model.TaskDone))
	c.tasks("overdue_tasks", tasks, overdue(s.now()))
	return c.stats, c.err
}

func collaboratorStats(ctx context.Context, s *DashboardService, u *model.User) (Stats, error) {
	c := s.counter(ctx)
	tasks := policy.TasksFor(u)

	c.tasks("my_tasks", tasks, repository.TaskFilter{})
	c.tasks("completed_tasks", tasks, statuses(model.TaskDone))
	c.tasks("in_progress", tasks, statuses(model.TaskInProgress))
	c.tasks("pending_tasks", tasks, statuses(model.TaskTodo))
	c.tasks("overdue_tasks", tasks, overdue(s.now()))
	return c.stats, c.err
}

func clientStats(ctx context.Context, s *DashboardService, u *model.User) (Stats, error) {
	c := s.counter(ctx)
	projects, tasks := policy.ProjectsFor(u), policy.TasksFor(u)

	c.projects("my_projects", projects, "")
	c.projects("active_projects", projects, model.ProjectActive)
	c.projects("completed_projects", projects, model.ProjectCompleted)
	c.tasks("total_tasks", tasks, repository.TaskFilter{})
	c.tasks("pending_review", tasks, statuses(model.TaskInReview))
	return c.stats, c.err
}
