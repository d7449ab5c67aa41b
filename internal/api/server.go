package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"taskhub/internal/service"
)

// Services groups the business logic the handlers call into.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Projects      *service.ProjectService
	Tasks         *service.TaskService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Activity      *service.ActivityService
	Resets        *service.PasswordResetService
	Dashboard     *service.DashboardService
}

// Server is the JSON API. It implements http.Handler.
type Server struct {
	svc     Services
	now     service.Clock
	origins []string
	handler http.Handler
}

// New wires every route. allowedOrigins feeds the CORS middleware; "*" allows any origin.
func New(svc Services, allowedOrigins []string, now service.Clock) *Server {
	if now == nil {
		now = service.UTC
	}
	s := &Server{svc: svc, now: now, origins: allowedOrigins}

	mux := http.NewServeMux()

	// Public
	handle(mux, "POST", "/api/auth/login", s.handleLogin)
	handle(mux, "POST", "/api/auth/refresh", s.handleRefresh)
	handle(mux, "POST", "/api/auth/forgot-password", s.handleForgotPassword)
	handle(mux, "POST", "/api/auth/verify-code", s.handleVerifyCode)
	handle(mux, "POST", "/api/auth/change-password", s.handleChangePassword)

	// Authenticated
	app := http.NewServeMux()

	handle(app, "GET", "/api/dashboard/stats", s.handleDashboardStats)
	handle(app, "GET", "/api/dashboard/recent-tasks", s.handleRecentTasks)
	handle(app, "GET", "/api/dashboard/active-projects", s.handleActiveProjects)

	handle(app, "GET", "/api/users", s.handleListUsers)
	handle(app, "POST", "/api/users", s.handleCreateUser)
	handle(app, "GET", "/api/users/available", s.handleAvailableUsers)
	handle(app, "GET", "/api/users/{id}", s.handleGetUser)
	handle(app, "PUT", "/api/users/{id}", s.handleUpdateUser)
	handle(app, "PATCH", "/api/users/{id}", s.handleUpdateUser)
	handle(app, "DELETE", "/api/users/{id}", s.handleDeleteUser)

	handle(app, "GET", "/api/projects", s.handleListProjects)
	handle(app, "POST", "/api/projects", s.handleCreateProject)
	handle(app, "GET", "/api/projects/{id}", s.handleGetProject)
	handle(app, "PUT", "/api/projects/{id}", s.handleUpdateProject)
	handle(app, "PATCH", "/api/projects/{id}", s.handleUpdateProject)
	handle(app, "DELETE", "/api/projects/{id}", s.handleDeleteProject)
	handle(app, "GET", "/api/projects/{id}/kanban", s.handleKanban)

	handle(app, "GET", "/api/tasks", s.handleListTasks)
	handle(app, "POST", "/api/tasks", s.handleCreateTask)
	handle(app, "GET", "/api/tasks/{id}", s.handleGetTask)
	handle(app, "PUT", "/api/tasks/{id}", s.handleUpdateTask)
	handle(app, "PATCH", "/api/tasks/{id}", s.handleUpdateTask)
	handle(app, "DELETE", "/api/tasks/{id}", s.handleDeleteTask)
	handle(app, "GET", "/api/tasks/{id}/comments", s.handleListComments)
	handle(app, "POST", "/api/tasks/{id}/comments", s.handleCreateComment)

	handle(app, "GET", "/api/notifications", s.handleListNotifications)
	handle(app, "POST", "/api/notifications/{id}/read", s.handleMarkNotificationRead)

	handle(app, "GET", "/api/activity", s.handleListActivity)

	mux.Handle("/", s.authMiddleware(app))

	s.handler = logRequests(s.cors(withClientIP(mux)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handle registers h for path both with and without a trailing slash.
func handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(method+" "+path+"/{$}", h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// fail maps a service error onto a status code and body.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := map[string]string{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		writeJSON(w, http.StatusBadRequest, body)
	case service.IsResetError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": err.Error()})
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	default:
		log.Printf("[error] %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
