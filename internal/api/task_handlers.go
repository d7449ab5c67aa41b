package api

import (
	"net/http"

	"taskhub/internal/model"
	"taskhub/internal/service"
)

type taskRequest struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Status         *model.TaskStatus `json:"status"`
	Priority       *model.Priority   `json:"priority"`
	DueDate        *Date             `json:"due_date"`
	EstimatedHours *float64          `json:"estimated_hours"`
	ActualHours    *float64          `json:"actual_hours"`
	Position       *uint             `json:"position"`
	Project        *uint             `json:"project"`
	AssignedTo     []uint            `json:"assigned_to"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "field": "project_id"})
		return
	}
	tasks, err := s.svc.Tasks.List(r.Context(), currentUser(r), projectID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskViews(tasks, s.now()))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, skipped, err := s.svc.Tasks.Create(r.Context(), currentUser(r), service.TaskInput{
		Title:          valueOf(req.Title),
		Description:    valueOf(req.Description),
		Priority:       valueOf(req.Priority),
		DueDate:        timeOf(req.DueDate),
		EstimatedHours: req.EstimatedHours,
		ProjectID:      valueOf(req.Project),
		AssignedTo:     req.AssignedTo,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if skipped == nil {
		skipped = []service.SkippedAssignment{}
	}
	writeJSON(w, http.StatusCreated, taskCreated{taskView: taskViewOf(t, s.now()), SkippedAssignments: skipped})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	t, err := s.svc.Tasks.Get(r.Context(), currentUser(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskViewOf(t, s.now()))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req taskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := s.svc.Tasks.Update(r.Context(), currentUser(r), id, service.TaskChanges{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        timePtr(req.DueDate),
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Position:       req.Position,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskViewOf(t, s.now()))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := s.svc.Tasks.Delete(r.Context(), currentUser(r), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	comments, err := s.svc.Comments.List(r.Context(), currentUser(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentViews(comments))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req struct {
		Content    string `json:"content"`
		Attachment string `json:"attachment"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c, err := s.svc.Comments.Add(r.Context(), currentUser(r), id, req.Content, req.Attachment)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commentViewOf(c))
}
