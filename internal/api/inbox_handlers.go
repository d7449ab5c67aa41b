package api

import (
	"errors"
	"net/http"

	"taskhub/internal/service"
)

// Dashboard

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.Stats(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleRecentTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.Dashboard.RecentTasks(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": taskViews(tasks, s.now())})
}

func (s *Server) handleActiveProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Dashboard.ActiveProjects(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projectViews(projects)})
}

// Notifications

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Notifications.List(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationViews(items))
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	err := s.svc.Notifications.MarkRead(r.Context(), currentUser(r), id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Notification not found")
	case err != nil:
		fail(w, r, err)
	default:
		writeMessage(w, "Notification marked as read")
	}
}

// Activity

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Activity.Recent(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityViews(entries))
}
