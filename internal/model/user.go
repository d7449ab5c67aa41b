package model

import (
	"strings"
	"time"
)

// Role is the primary axis of the visibility policy.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleManager      Role = "MANAGER"
	RoleCollaborator Role = "COLLABORATOR"
	RoleClient       Role = "CLIENT"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCollaborator, RoleClient:
		return true
	}
	return false
}

// User is an account identified by its email.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"uniqueIndex;not null"`
	PasswordHash   string `gorm:"not null"`
	FirstName      string `gorm:"size:50"`
	LastName       string `gorm:"size:50"`
	Role           Role   `gorm:"size:20;default:CLIENT;index"`
	Phone          string `gorm:"size:20"`
	ProfilePicture string
	IsActive       bool `gorm:"default:true"`
	// IsOnline has no writer inside this service; it is exposed for an external presence feed.
	IsOnline       bool `gorm:"default:false"`
	LastLogin      *time.Time
	LastLoginIP    *string
	TelegramChatID *int64 `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ProjectAssignments []ProjectAssignment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// FullName joins first and last name, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// ProjectCount is the number of projects the user is assigned to.
// ProjectAssignments must be preloaded.
func (u User) ProjectCount() int {
	return len(u.ProjectAssignments)
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
