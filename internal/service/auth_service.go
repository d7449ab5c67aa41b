package service

import (
	"context"

	"taskhub/internal/auth"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// Session is the result of a successful login.
type Session struct {
	Tokens auth.Pair
	User   *model.User
}

// AuthService handles login, token refresh and request authentication.
type AuthService struct {
	users    *repository.UserRepository
	activity *ActivityService
	issuer   *auth.Issuer
	now      Clock
}

func NewAuthService(users *repository.UserRepository, activity *ActivityService, issuer *auth.Issuer, now Clock) *AuthService {
	return &AuthService{users: users, activity: activity, issuer: issuer, now: now}
}

func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case repository.IsNotFound(err):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	ip := ClientIP(ctx)
	if err := s.users.RecordLogin(ctx, user, now, ip); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	if ip != "" {
		user.LastLoginIP = &ip
	}
	s.activity.Record(ctx, user, model.ActionLogin, "User logged in", nil, nil)

	pair, err := s.issuer.IssuePair(user, remember)
	if err != nil {
		return nil, err
	}
	return &Session{Tokens: pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.issuer.Parse(refresh, auth.TypeRefresh)
	if err != nil {
		return "", ErrInvalidToken
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return s.issuer.IssueAccess(user)
}

// Authenticate resolves a bearer access token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, access string) (*model.User, error) {
	claims, err := s.issuer.Parse(access, auth.TypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.activeUser(ctx, claims.UserID)
}

func (s *AuthService) activeUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	switch {
	case repository.IsNotFound(err):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}
