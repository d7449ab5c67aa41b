package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/auth"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeDispatcher struct {
	got []model.Notification
	err error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, n model.Notification) error {
	d.got = append(d.got, n)
	return d.err
}

type env struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	now time.Time

	userRepo     *repository.UserRepository
	projectRepo  *repository.ProjectRepository
	taskRepo     *repository.TaskRepository
	notifyRepo   *repository.NotificationRepository
	activityRepo *repository.ActivityRepository
	codeRepo     *repository.ResetCodeRepository

	mail       *fakeMailer
	dispatcher *fakeDispatcher

	notifications *NotificationService
	activity      *ActivityService
	users         *UserService
	auth          *AuthService
	projects      *ProjectService
	tasks         *TaskService
	comments      *CommentService
	resets        *PasswordResetService
	dashboard     *DashboardService
	overdue       *OverdueService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repository.NewDB(repository.DriverPureSQLite, filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	e := &env{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		now:          time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		userRepo:     repository.NewUserRepository(db),
		projectRepo:  repository.NewProjectRepository(db),
		taskRepo:     repository.NewTaskRepository(db),
		notifyRepo:   repository.NewNotificationRepository(db),
		activityRepo: repository.NewActivityRepository(db),
		codeRepo:     repository.NewResetCodeRepository(db),
		mail:         &fakeMailer{},
		dispatcher:   &fakeDispatcher{},
	}
	clock := func() time.Time { return e.now }

	e.notifications = NewNotificationService(e.notifyRepo)
	e.notifications.SetDispatcher(e.dispatcher)
	e.activity = NewActivityService(e.activityRepo)
	e.users = NewUserService(e.userRepo)
	issuer := auth.NewIssuer("secret", auth.Lifetimes{Access: time.Hour, Refresh: 24 * time.Hour, Remember: 7 * 24 * time.Hour})
	e.auth = NewAuthService(e.userRepo, e.activity, issuer, clock)
	e.projects = NewProjectService(e.projectRepo, e.taskRepo, e.userRepo, e.notifications, e.activity)
	e.tasks = NewTaskService(e.taskRepo, e.projectRepo, e.userRepo, e.notifications, e.activity, clock)
	e.comments = NewCommentService(e.taskRepo, repository.NewCommentRepository(db), e.notifications)
	e.resets = NewPasswordResetService(e.userRepo, e.codeRepo, e.mail, e.activity, 10*time.Minute, clock)
	e.dashboard = NewDashboardService(e.userRepo, e.projectRepo, e.taskRepo, e.activityRepo, clock)
	e.overdue = NewOverdueService(e.taskRepo, e.notifications, clock)
	return e
}

func (e *env) user(email string, role model.Role) *model.User {
	e.t.Helper()
	u := &model.User{Email: email, PasswordHash: "-", Role: role, IsActive: true}
	if err := e.userRepo.Create(e.ctx, u); err != nil {
		e.t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// project creates a project directly, assigning users without limit checks.
func (e *env) project(name string, creator, client *model.User, assignees ...*model.User) *model.Project {
	e.t.Helper()
	p := &model.Project{
		Name: name, Description: name, Status: model.ProjectActive, Priority: model.PriorityMedium,
		CreatedByID: creator.ID, ClientID: client.ID,
		StartDate: e.now, EndDate: e.now.Add(30 * 24 * time.Hour),
	}
	if err := e.projectRepo.Create(e.ctx, p); err != nil {
		e.t.Fatalf("create project %s: %v", name, err)
	}
	for _, u := range assignees {
		a := &model.ProjectAssignment{ProjectID: p.ID, UserID: u.ID, AssignedByID: creator.ID, RoleInProject: model.RoleInProjectFor(u.Role)}
		if err := e.projectRepo.CreateAssignment(e.ctx, a); err != nil {
			e.t.Fatalf("assign %s: %v", u.Email, err)
		}
	}
	return p
}

// task creates a task directly with the given status and due date.
func (e *env) task(title string, p *model.Project, status model.TaskStatus, due time.Time, assignees ...*model.User) *model.Task {
	e.t.Helper()
	task := &model.Task{
		Title: title, Description: title, ProjectID: p.ID, CreatedByID: p.CreatedByID,
		Status: status, Priority: model.PriorityMedium, DueDate: due,
	}
	if err := e.taskRepo.Create(e.ctx, task); err != nil {
		e.t.Fatalf("create task %s: %v", title, err)
	}
	for _, u := range assignees {
		a := &model.TaskAssignment{TaskID: task.ID, UserID: u.ID, AssignedByID: p.CreatedByID}
		if err := e.taskRepo.CreateAssignment(e.ctx, a); err != nil {
			e.t.Fatalf("assign task %s: %v", title, err)
		}
	}
	return task
}

func (e *env) notificationsOf(u *model.User, kind model.NotificationType) []model.Notification {
	e.t.Helper()
	items, err := e.notifications.List(e.ctx, u)
	if err != nil {
		e.t.Fatalf("list notifications: %v", err)
	}
	var out []model.Notification
	for _, n := range items {
		if n.NotificationType == kind {
			out = append(out, n)
		}
	}
	return out
}

func wantValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error on %s, got %v", field, err)
	}
	if verr.Field != field {
		t.Fatalf("validation error on %q, want %q", verr.Field, field)
	}
}
