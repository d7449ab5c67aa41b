package api

import (
	"net/http"
	"strings"

	"taskhub/internal/service"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  session.Tokens.Access,
		"refresh": session.Tokens.Refresh,
		"user":    sessionUserOf(session.User),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "This field is required.", "field": "refresh"})
		return
	}

	access, err := s.svc.Auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

type resetRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	if err := s.svc.Resets.Request(r.Context(), req.Email); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, service.ResetRequestedMessage)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := s.svc.Resets.Verify(r.Context(), req.Email, req.Code); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, service.CodeVerifiedMessage)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Code == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := s.svc.Resets.Change(r.Context(), req.Email, req.Code, req.Password); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, service.PasswordResetMessage)
}
