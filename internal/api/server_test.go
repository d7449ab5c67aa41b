package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

type testServer struct {
	t      *testing.T
	ctx    context.Context
	srv    *Server
	users  *service.UserService
	issuer *auth.Issuer
	admin  *model.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.NewDB(repository.DriverPureSQLite, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	issuer := auth.NewIssuer("test-secret", auth.Lifetimes{Access: time.Hour, Refresh: 24 * time.Hour, Remember: 7 * 24 * time.Hour})
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db))
	activity := service.NewActivityService(activityRepo)
	users := service.NewUserService(userRepo)

	svc := Services{
		Auth:          service.NewAuthService(userRepo, activity, issuer, service.UTC),
		Users:         users,
		Projects:      service.NewProjectService(projectRepo, taskRepo, userRepo, notifications, activity),
		Tasks:         service.NewTaskService(taskRepo, projectRepo, userRepo, notifications, activity, service.UTC),
		Comments:      service.NewCommentService(taskRepo, repository.NewCommentRepository(db), notifications),
		Notifications: notifications,
		Activity:      activity,
		Resets:        service.NewPasswordResetService(userRepo, repository.NewResetCodeRepository(db), nopMailer{}, activity, 10*time.Minute, service.UTC),
		Dashboard:     service.NewDashboardService(userRepo, projectRepo, taskRepo, activityRepo, service.UTC),
	}

	ts := &testServer{
		t:      t,
		ctx:    context.Background(),
		srv:    New(svc, []string{"http://localhost:3000"}, service.UTC),
		users:  users,
		issuer: issuer,
	}
	ts.admin, err = users.CreateAdmin(ts.ctx, service.NewUser{Email: "admin@x.com", Password: "admin-password"})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return ts
}

func (ts *testServer) user(email string, role model.Role) *model.User {
	ts.t.Helper()
	u, err := ts.users.Create(ts.ctx, ts.admin, service.NewUser{Email: email, Password: "password123", Role: role})
	if err != nil {
		ts.t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func (ts *testServer) token(u *model.User) string {
	ts.t.Helper()
	pair, err := ts.issuer.IssuePair(u, false)
	if err != nil {
		ts.t.Fatalf("issue token: %v", err)
	}
	return pair.Access
}

// do sends a request as u (anonymous when nil) and decodes the JSON reply into out.
func (ts *testServer) do(u *model.User, method, path string, body any, out any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+ts.token(u))
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			ts.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestLoginAndAuthentication(t *testing.T) {
	ts := newTestServer(t)

	var failed map[string]string
	rec := ts.do(nil, "POST", "/api/auth/login/", map[string]any{"email": "admin@x.com", "password": "nope"}, &failed)
	if rec.Code != http.StatusUnauthorized || failed["detail"] != "No active account found with the given credentials" {
		t.Fatalf("bad login: %d %v", rec.Code, failed)
	}

	var session struct {
		Access  string      `json:"access"`
		Refresh string      `json:"refresh"`
		User    sessionUser `json:"user"`
	}
	rec = ts.do(nil, "POST", "/api/auth/login", map[string]any{"email": "admin@x.com", "password": "admin-password"}, &session)
	if rec.Code != http.StatusOK || session.Access == "" || session.User.Role != model.RoleAdmin {
		t.Fatalf("login: %d %+v", rec.Code, session)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}

	var refreshed map[string]string
	rec = ts.do(nil, "POST", "/api/auth/refresh/", map[string]string{"refresh": session.Refresh}, &refreshed)
	if rec.Code != http.StatusOK || refreshed["access"] == "" {
		t.Fatalf("refresh: %d %v", rec.Code, refreshed)
	}
	rec = ts.do(nil, "POST", "/api/auth/refresh/", map[string]string{"refresh": session.Access}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token accepted as refresh: %d", rec.Code)
	}

	rec = ts.do(nil, "GET", "/api/dashboard/stats/", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous stats: %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	req.Header.Set("Authorization", "Bearer "+session.Access)
	out := httptest.NewRecorder()
	ts.srv.ServeHTTP(out, req)
	var stats struct {
		Stats map[string]int64 `json:"stats"`
	}
	if err := json.Unmarshal(out.Body.Bytes(), &stats); err != nil || out.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", out.Code, out.Body.String())
	}
	if stats.Stats["total_users"] != 1 {
		t.Fatalf("stats = %v", stats.Stats)
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	client := ts.user("client@x.com", model.RoleClient)
	worker := ts.user("w@x.com", model.RoleCollaborator)
	outsider := ts.user("m@x.com", model.RoleManager)

	var created projectCreated
	rec := ts.do(ts.admin, "POST", "/api/projects/", map[string]any{
		"name":           "Website",
		"description":    "Relaunch",
		"start_date":     "2024-05-01",
		"end_date":       "2024-08-01T00:00:00Z",
		"client":         client.ID,
		"budget":         1200.456,
		"assigned_users": []uint{worker.ID, 9999, worker.ID},
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", rec.Code, rec.Body.String())
	}
	if created.Status != model.ProjectPlanning || created.StartDate != "2024-05-01" || len(created.AssignedUsers) != 1 {
		t.Fatalf("unexpected project: %+v", created.projectView)
	}
	if created.Budget == nil || *created.Budget != 1200.46 {
		t.Fatalf("budget = %v", created.Budget)
	}
	if len(created.SkippedAssignments) != 2 {
		t.Fatalf("skipped = %+v", created.SkippedAssignments)
	}

	path := fmt.Sprintf("/api/projects/%d/", created.ID)
	if rec := ts.do(outsider, "GET", path, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("outsider get: %d", rec.Code)
	}
	if rec := ts.do(client, "GET", path, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("client get: %d", rec.Code)
	}

	var task taskCreated
	rec = ts.do(ts.admin, "POST", "/api/tasks", map[string]any{
		"title": "Design", "description": "Mockups", "project": created.ID,
		"due_date": "2099-01-01", "assigned_to": []uint{worker.ID},
	}, &task)
	if rec.Code != http.StatusCreated || len(task.AssignedTo) != 1 || task.IsOverdue {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}

	var updated taskView
	rec = ts.do(worker, "PATCH", fmt.Sprintf("/api/tasks/%d", task.ID), map[string]string{"status": "DONE"}, &updated)
	if rec.Code != http.StatusOK || updated.CompletedAt == nil || updated.DaysUntilDue != nil {
		t.Fatalf("complete task: %d %s", rec.Code, rec.Body.String())
	}

	var board struct {
		Project projectView                  `json:"project"`
		Columns map[string][]json.RawMessage `json:"columns"`
	}
	rec = ts.do(ts.admin, "GET", fmt.Sprintf("/api/projects/%d/kanban/", created.ID), nil, &board)
	if rec.Code != http.StatusOK || len(board.Columns) != 4 || len(board.Columns["DONE"]) != 1 || len(board.Columns["TODO"]) != 0 {
		t.Fatalf("kanban: %d %s", rec.Code, rec.Body.String())
	}
	if board.Project.ProgressPercentage != 100 || board.Project.TaskStats.Done != 1 {
		t.Fatalf("derived fields: %+v", board.Project)
	}

	if rec := ts.do(outsider, "DELETE", path, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("outsider delete: %d", rec.Code)
	}
	if rec := ts.do(ts.admin, "DELETE", path, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete: %d", rec.Code)
	}
}

func TestValidationAndPermissionErrors(t *testing.T) {
	ts := newTestServer(t)
	worker := ts.user("w@x.com", model.RoleCollaborator)

	var verr map[string]string
	rec := ts.do(ts.admin, "POST", "/api/projects", map[string]any{"name": "x"}, &verr)
	if rec.Code != http.StatusBadRequest || verr["field"] != "description" {
		t.Fatalf("missing description: %d %v", rec.Code, verr)
	}

	rec = ts.do(ts.admin, "POST", "/api/projects", map[string]any{"name": "x", "start_date": "01/05/2024"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", rec.Code)
	}

	if rec := ts.do(worker, "GET", "/api/users/available/", nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("available as collaborator: %d", rec.Code)
	}
	if rec := ts.do(worker, "GET", "/api/activity/", nil, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("activity as collaborator: %d", rec.Code)
	}
	if rec := ts.do(worker, "POST", "/api/users/", map[string]string{"email": "n@x.com", "password": "long-enough"}, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("create user as collaborator: %d", rec.Code)
	}

	var users []userView
	rec = ts.do(worker, "GET", "/api/users", nil, &users)
	if rec.Code != http.StatusOK || len(users) != 0 {
		t.Fatalf("users as collaborator: %d %v", rec.Code, users)
	}
	if rec := ts.do(worker, "GET", fmt.Sprintf("/api/users/%d", ts.admin.ID), nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("user detail as collaborator: %d", rec.Code)
	}

	var available struct {
		Users []userView `json:"users"`
	}
	rec = ts.do(ts.admin, "GET", "/api/users/available", nil, &available)
	if rec.Code != http.StatusOK || len(available.Users) != 1 || available.Users[0].ID != worker.ID {
		t.Fatalf("available: %d %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(ts.admin, "GET", "/api/users/available?project_id=abc", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad project_id: %d", rec.Code)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	rec := ts.do(nil, "POST", "/api/auth/forgot-password/", map[string]string{}, &body)
	if rec.Code != http.StatusBadRequest || body["error"] != "Email is required." {
		t.Fatalf("forgot without email: %d %v", rec.Code, body)
	}

	body = nil
	rec = ts.do(nil, "POST", "/api/auth/forgot-password/", map[string]string{"email": "ghost@x.com"}, &body)
	if rec.Code != http.StatusOK || body["message"] != service.ResetRequestedMessage {
		t.Fatalf("forgot unknown: %d %v", rec.Code, body)
	}

	body = nil
	rec = ts.do(nil, "POST", "/api/auth/verify-code/", map[string]string{"email": "ghost@x.com"}, &body)
	if rec.Code != http.StatusBadRequest || body["error"] != "Missing required fields" {
		t.Fatalf("verify missing code: %d %v", rec.Code, body)
	}

	body = nil
	rec = ts.do(nil, "POST", "/api/auth/verify-code/", map[string]string{"email": "ghost@x.com", "code": "123456"}, &body)
	if rec.Code != http.StatusBadRequest || body["error"] != "Invalid email" {
		t.Fatalf("verify ghost: %d %v", rec.Code, body)
	}

	body = nil
	rec = ts.do(nil, "POST", "/api/auth/change-password/", map[string]string{"email": "admin@x.com", "code": "123456", "password": "x"}, &body)
	if rec.Code != http.StatusBadRequest || body["error"] != "No valid code found" {
		t.Fatalf("change without code: %d %v", rec.Code, body)
	}
}

func TestNotificationsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	client := ts.user("client@x.com", model.RoleClient)
	worker := ts.user("w@x.com", model.RoleCollaborator)

	rec := ts.do(ts.admin, "POST", "/api/projects", map[string]any{
		"name": "P", "description": "d", "start_date": "2024-01-01", "end_date": "2024-02-01",
		"client": client.ID, "assigned_users": []uint{worker.ID},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	var items []notificationView
	rec = ts.do(worker, "GET", "/api/notifications/", nil, &items)
	if rec.Code != http.StatusOK || len(items) != 1 || items[0].NotificationType != model.NotifyProjectAssigned {
		t.Fatalf("notifications: %d %s", rec.Code, rec.Body.String())
	}

	readPath := fmt.Sprintf("/api/notifications/%d/read/", items[0].ID)
	var body map[string]string
	rec = ts.do(client, "POST", readPath, nil, &body)
	if rec.Code != http.StatusNotFound || body["error"] != "Notification not found" {
		t.Fatalf("foreign read: %d %v", rec.Code, body)
	}
	body = nil
	rec = ts.do(worker, "POST", readPath, nil, &body)
	if rec.Code != http.StatusOK || body["message"] != "Notification marked as read" {
		t.Fatalf("read: %d %v", rec.Code, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/projects/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/projects/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin allowed")
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		forwarded, remote, want string
	}{
		{forwarded: "203.0.113.7, 10.0.0.1", remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{remote: "pipe", want: "pipe"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tc.remote
		if tc.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tc.forwarded)
		}
		if got := clientIP(req); got != tc.want {
			t.Fatalf("clientIP(%+v) = %q, want %q", tc, got, tc.want)
		}
	}
}

func TestDateAcceptsBothFormats(t *testing.T) {
	var v struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"2024-05-01","b":"2024-05-01T10:00:00+02:00"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !v.A.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("a = %v", v.A)
	}
	if !v.B.Equal(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)) || v.B.Location() != time.UTC {
		t.Fatalf("b = %v", v.B)
	}
	if err := json.Unmarshal([]byte(`{"a":"May 1"}`), &v); err == nil {
		t.Fatal("expected error for bad date")
	}
}
