package api

import (
	"net/http"
	"strings"

	"taskhub/internal/model"
	"taskhub/internal/service"
)

type projectRequest struct {
	Name          *string              `json:"name"`
	Description   *string              `json:"description"`
	Status        *model.ProjectStatus `json:"status"`
	Priority      *model.Priority      `json:"priority"`
	Budget        *float64             `json:"budget"`
	StartDate     *Date                `json:"start_date"`
	EndDate       *Date                `json:"end_date"`
	Client        *uint                `json:"client"`
	AssignedUsers []uint               `json:"assigned_users"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	status := model.ProjectStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	projects, err := s.svc.Projects.List(r.Context(), currentUser(r), status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectViews(projects))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, skipped, err := s.svc.Projects.Create(r.Context(), currentUser(r), service.ProjectInput{
		Name:          valueOf(req.Name),
		Description:   valueOf(req.Description),
		Status:        valueOf(req.Status),
		Priority:      valueOf(req.Priority),
		Budget:        req.Budget,
		StartDate:     timeOf(req.StartDate),
		EndDate:       timeOf(req.EndDate),
		ClientID:      valueOf(req.Client),
		AssignedUsers: req.AssignedUsers,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if skipped == nil {
		skipped = []service.SkippedAssignment{}
	}
	writeJSON(w, http.StatusCreated, projectCreated{projectView: projectViewOf(p), SkippedAssignments: skipped})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	p, err := s.svc.Projects.Get(r.Context(), currentUser(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectViewOf(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req projectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.svc.Projects.Update(r.Context(), currentUser(r), id, service.ProjectChanges{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Budget:      req.Budget,
		StartDate:   timePtr(req.StartDate),
		EndDate:     timePtr(req.EndDate),
		ClientID:    req.Client,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectViewOf(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := s.svc.Projects.Delete(r.Context(), currentUser(r), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKanban(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	board, err := s.svc.Projects.Kanban(r.Context(), currentUser(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}

	now := s.now()
	columns := make(map[model.TaskStatus][]taskView, len(model.KanbanColumns))
	for _, status := range model.KanbanColumns {
		columns[status] = taskViews(board.Columns[status], now)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": projectViewOf(board.Project),
		"columns": columns,
	})
}
