package policy_test

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

type fixture struct {
	db      *gorm.DB
	users   map[string]*model.User
	project map[string]uint
	task    map[string]uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(repository.DriverPureSQLite, filepath.Join(t.TempDir(), "policy.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	f := &fixture{db: db, users: map[string]*model.User{}, project: map[string]uint{}, task: map[string]uint{}}

	for name, role := range map[string]model.Role{
		"admin": model.RoleAdmin, "m1": model.RoleManager, "m2": model.RoleManager,
		"c1": model.RoleCollaborator, "cl1": model.RoleClient, "cl2": model.RoleClient,
	} {
		u := &model.User{Email: name + "@x.com", PasswordHash: "x", Role: role, IsActive: true}
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		f.users[name] = u
	}

	f.addProject(t, "P1", "m1", "cl1")
	f.addProject(t, "P2", "admin", "cl2", "m2", "c1")
	f.addProject(t, "P3", "admin", "cl1")

	f.addTask(t, "T1", "P1", "c1")
	f.addTask(t, "T2", "P2", "c1")
	f.addTask(t, "T3", "P3")
	return f
}

func (f *fixture) addProject(t *testing.T, name, creator, client string, assignees ...string) {
	t.Helper()
	p := &model.Project{
		Name: name, Description: name, CreatedByID: f.users[creator].ID, ClientID: f.users[client].ID,
		Status: model.ProjectActive, Priority: model.PriorityMedium,
		StartDate: time.Now().UTC(), EndDate: time.Now().UTC().Add(240 * time.Hour),
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	for _, a := range assignees {
		u := f.users[a]
		if err := f.db.Create(&model.ProjectAssignment{
			ProjectID: p.ID, UserID: u.ID, AssignedByID: p.CreatedByID, RoleInProject: model.RoleInProjectFor(u.Role),
		}).Error; err != nil {
			t.Fatalf("assign %s to %s: %v", a, name, err)
		}
	}
	f.project[name] = p.ID
}

func (f *fixture) addTask(t *testing.T, name, project string, assignees ...string) {
	t.Helper()
	task := &model.Task{
		Title: name, Description: name, ProjectID: f.project[project], CreatedByID: f.users["admin"].ID,
		Status: model.TaskTodo, Priority: model.PriorityLow, DueDate: time.Now().UTC().Add(48 * time.Hour),
	}
	if err := f.db.Create(task).Error; err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	for _, a := range assignees {
		if err := f.db.Create(&model.TaskAssignment{TaskID: task.ID, UserID: f.users[a].ID, AssignedByID: task.CreatedByID}).Error; err != nil {
			t.Fatalf("assign %s to %s: %v", a, name, err)
		}
	}
	f.task[name] = task.ID
}

func (f *fixture) projectNames(t *testing.T, u *model.User) []string {
	t.Helper()
	projects, err := repository.NewProjectRepository(f.db).ListVisible(context.Background(), policy.ProjectsFor(u), repository.ProjectFilter{})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	var names []string
	for _, p := range projects {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (f *fixture) taskNames(t *testing.T, u *model.User) []string {
	t.Helper()
	tasks, err := repository.NewTaskRepository(f.db).ListVisible(context.Background(), policy.TasksFor(u), repository.TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	var names []string
	for _, task := range tasks {
		names = append(names, task.Title)
	}
	sort.Strings(names)
	return names
}

func TestVisibilityByRole(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		user     string
		projects []string
		tasks    []string
	}{
		{"admin", []string{"P1", "P2", "P3"}, []string{"T1", "T2", "T3"}},
		{"m1", []string{"P1"}, []string{"T1"}},
		{"m2", []string{"P2"}, []string{"T2"}},
		{"c1", []string{"P2"}, []string{"T1", "T2"}},
		{"cl1", []string{"P1", "P3"}, []string{"T1", "T3"}},
		{"cl2", []string{"P2"}, []string{"T2"}},
	}
	for _, tc := range cases {
		t.Run(tc.user, func(t *testing.T) {
			u := f.users[tc.user]
			if got := f.projectNames(t, u); !equal(got, tc.projects) {
				t.Fatalf("projects = %v, want %v", got, tc.projects)
			}
			if got := f.taskNames(t, u); !equal(got, tc.tasks) {
				t.Fatalf("tasks = %v, want %v", got, tc.tasks)
			}
		})
	}
}

func TestAdminSeesSupersetOfEveryRole(t *testing.T) {
	f := newFixture(t)
	admin := f.projectNames(t, f.users["admin"])
	for name, u := range f.users {
		for _, p := range f.projectNames(t, u) {
			if !contains(admin, p) {
				t.Fatalf("%s sees %s which admin does not", name, p)
			}
		}
	}
}

func TestUnknownRoleSeesNothing(t *testing.T) {
	f := newFixture(t)
	ghost := &model.User{ID: f.users["m1"].ID, Role: model.Role("AUDITOR")}
	if got := f.projectNames(t, ghost); len(got) != 0 {
		t.Fatalf("unknown role sees projects %v", got)
	}
	if got := f.taskNames(t, ghost); len(got) != 0 {
		t.Fatalf("unknown role sees tasks %v", got)
	}
}

func TestHiddenEntityIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	projects := repository.NewProjectRepository(f.db)
	tasks := repository.NewTaskRepository(f.db)

	if _, err := projects.FindVisible(ctx, policy.ProjectsFor(f.users["m1"]), f.project["P2"]); !repository.IsNotFound(err) {
		t.Fatalf("expected not found for hidden project, got %v", err)
	}
	if _, err := projects.FindVisible(ctx, policy.ProjectsFor(f.users["m1"]), 9999); !repository.IsNotFound(err) {
		t.Fatalf("expected not found for missing project, got %v", err)
	}
	if _, err := tasks.FindVisible(ctx, policy.TasksFor(f.users["cl2"]), f.task["T3"]); !repository.IsNotFound(err) {
		t.Fatalf("expected not found for hidden task, got %v", err)
	}
	p, err := projects.FindVisible(ctx, policy.ProjectsFor(f.users["c1"]), f.project["P2"])
	if err != nil {
		t.Fatalf("collaborator should see P2: %v", err)
	}
	if len(p.Assignments) != 2 || p.Client == nil || p.CreatedBy == nil {
		t.Fatalf("relations not loaded: %+v", p)
	}
}

func TestPrivilegedActions(t *testing.T) {
	for role, want := range map[model.Role]bool{
		model.RoleAdmin: true, model.RoleManager: true, model.RoleCollaborator: false, model.RoleClient: false,
	} {
		if got := policy.CanListAssignable(role); got != want {
			t.Fatalf("CanListAssignable(%s) = %v", role, got)
		}
	}
	if policy.CanManageUsers(model.RoleManager) || !policy.CanManageUsers(model.RoleAdmin) {
		t.Fatal("only admins manage users")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
