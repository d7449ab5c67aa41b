package api

import (
	"net/http"

	"taskhub/internal/model"
	"taskhub/internal/service"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.List(r.Context(), currentUser(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userViews(users))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string     `json:"email"`
		Password  string     `json:"password"`
		FirstName string     `json:"first_name"`
		LastName  string     `json:"last_name"`
		Role      model.Role `json:"role"`
		Phone     string     `json:"phone"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u, err := s.svc.Users.Create(r.Context(), currentUser(r), service.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Phone:     req.Phone,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userViewOf(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	u, err := s.svc.Users.Get(r.Context(), currentUser(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userViewOf(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	var req struct {
		FirstName      *string     `json:"first_name"`
		LastName       *string     `json:"last_name"`
		Role           *model.Role `json:"role"`
		Phone          *string     `json:"phone"`
		ProfilePicture *string     `json:"profile_picture"`
		IsActive       *bool       `json:"is_active"`
		IsOnline       *bool       `json:"is_online"`
		TelegramChatID *int64      `json:"telegram_chat_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u, err := s.svc.Users.Update(r.Context(), currentUser(r), id, service.UserChanges{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           req.Role,
		Phone:          req.Phone,
		ProfilePicture: req.ProfilePicture,
		IsActive:       req.IsActive,
		IsOnline:       req.IsOnline,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userViewOf(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	if err := s.svc.Users.Delete(r.Context(), currentUser(r), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailableUsers(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "project_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "field": "project_id"})
		return
	}
	users, err := s.svc.Users.Available(r.Context(), currentUser(r), projectID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": userViews(users)})
}
