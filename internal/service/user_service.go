package service

import (
	"context"
	"fmt"
	"strings"

	"taskhub/internal/auth"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const minPasswordLength = 8

// NewUser represents data required to create an account.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
	Phone     string
}

// UserChanges is a partial update; nil fields are left alone.
type UserChanges struct {
	FirstName      *string
	LastName       *string
	Role           *model.Role
	Phone          *string
	ProfilePicture *string
	IsActive       *bool
	IsOnline       *bool
	TelegramChatID *int64
}

// UserService manages accounts. Every operation except Available is admin only.
type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns all users to admins and an empty list to everyone else.
func (s *UserService) List(ctx context.Context, requester *model.User) ([]model.User, error) {
	if !policy.CanManageUsers(requester.Role) {
		return []model.User{}, nil
	}
	return s.users.ListAll(ctx)
}

func (s *UserService) Get(ctx context.Context, requester *model.User, id uint) (*model.User, error) {
	if !policy.CanManageUsers(requester.Role) {
		return nil, ErrNotFound
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, requester *model.User, in NewUser) (*model.User, error) {
	if !policy.CanManageUsers(requester.Role) {
		return nil, ErrPermissionDenied
	}
	return s.create(ctx, in)
}

// CreateAdmin bootstraps an administrator from the command line.
func (s *UserService) CreateAdmin(ctx context.Context, in NewUser) (*model.User, error) {
	in.Role = model.RoleAdmin
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in NewUser) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "Enter a valid email address.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("Ensure this field has at least %d characters.", minPasswordLength))
	}
	if in.Role == "" {
		in.Role = model.RoleClient
	}
	if !in.Role.Valid() {
		return nil, invalid("role", fmt.Sprintf("%q is not a valid choice.", in.Role))
	}

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, invalid("email", "user with this email already exists.")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
		Phone:        strings.TrimSpace(in.Phone),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, requester *model.User, id uint, ch UserChanges) (*model.User, error) {
	if !policy.CanManageUsers(requester.Role) {
		return nil, ErrNotFound
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	if ch.Role != nil {
		if !ch.Role.Valid() {
			return nil, invalid("role", fmt.Sprintf("%q is not a valid choice.", *ch.Role))
		}
		user.Role = *ch.Role
	}
	if ch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*ch.FirstName)
	}
	if ch.LastName != nil {
		user.LastName = strings.TrimSpace(*ch.LastName)
	}
	if ch.Phone != nil {
		user.Phone = strings.TrimSpace(*ch.Phone)
	}
	if ch.ProfilePicture != nil {
		user.ProfilePicture = *ch.ProfilePicture
	}
	if ch.IsActive != nil {
		user.IsActive = *ch.IsActive
	}
	if ch.IsOnline != nil {
		user.IsOnline = *ch.IsOnline
	}
	if ch.TelegramChatID != nil {
		chatID := *ch.TelegramChatID
		user.TelegramChatID = &chatID
		if chatID == 0 {
			user.TelegramChatID = nil
		}
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, requester *model.User, id uint) error {
	if !policy.CanManageUsers(requester.Role) {
		return ErrNotFound
	}
	return translate(s.users.Delete(ctx, id))
}

// Available lists managers and collaborators who can take another project
// and, when projectID is given, another task in that project.
func (s *UserService) Available(ctx context.Context, requester *model.User, projectID *uint) ([]model.User, error) {
	if !policy.CanListAssignable(requester.Role) {
		return nil, ErrPermissionDenied
	}
	candidates, err := s.users.ListByRoles(ctx, model.RoleManager, model.RoleCollaborator)
	if err != nil {
		return nil, err
	}

	available := make([]model.User, 0, len(candidates))
	for _, u := range candidates {
		if u.ProjectCount() >= MaxProjectsPerUser {
			continue
		}
		if projectID != nil {
			n, err := s.users.CountTaskAssignmentsInProject(ctx, u.ID, *projectID)
			if err != nil {
				return nil, err
			}
			if n >= MaxTasksPerUserPerProject {
				continue
			}
		}
		available = append(available, u)
	}
	return available, nil
}
