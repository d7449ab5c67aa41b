// Package policy decides which projects and tasks a user may see.
//
// Every role has its own Visibility implementation, looked up by role. The
// scopes it returns are used both for list queries and, combined with an id
// filter, for single-entity lookups, so an entity hidden from a user is
// reported exactly like one that does not exist.
package policy

import (
	"gorm.io/gorm"

	"taskhub/internal/model"
)

// Scope narrows a gorm query.
type Scope = func(*gorm.DB) *gorm.DB

// Visibility computes the projects and tasks a requester may read.
type Visibility interface {
	Projects(u *model.User) Scope
	Tasks(u *model.User) Scope
}

var byRole = map[model.Role]Visibility{
	model.RoleAdmin:        adminVisibility{},
	model.RoleManager:      managerVisibility{},
	model.RoleCollaborator: collaboratorVisibility{},
	model.RoleClient:       clientVisibility{},
}

// For returns the policy for role; unknown roles see nothing.
func For(role model.Role) Visibility {
	if v, ok := byRole[role]; ok {
		return v
	}
	return noVisibility{}
}

// ProjectsFor is shorthand for For(u.Role).Projects(u).
func ProjectsFor(u *model.User) Scope {
	return For(u.Role).Projects(u)
}

// TasksFor is shorthand for For(u.Role).Tasks(u).
func TasksFor(u *model.User) Scope {
	return For(u.Role).Tasks(u)
}

// CanListAssignable reports whether role may query users available for assignment.
func CanListAssignable(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleManager
}

// CanManageUsers reports whether role may list, create, change or delete users.
func CanManageUsers(role model.Role) bool {
	return role == model.RoleAdmin
}

// CanReadActivity reports whether role may read the audit log.
func CanReadActivity(role model.Role) bool {
	return role == model.RoleAdmin
}

const (
	assignedProjectIDs = "SELECT project_id FROM project_assignments WHERE user_id = ?"
	managedProjectIDs  = "SELECT id FROM projects WHERE created_by_id = ? OR id IN (" + assignedProjectIDs + ")"
	clientProjectIDs   = "SELECT id FROM projects WHERE client_id = ?"
	assignedTaskIDs    = "SELECT task_id FROM task_assignments WHERE user_id = ?"
)

type adminVisibility struct{}

func (adminVisibility) Projects(*model.User) Scope { return all }
func (adminVisibility) Tasks(*model.User) Scope    { return all }

// Managers see projects they created or are assigned to, and every task in them.
type managerVisibility struct{}

func (managerVisibility) Projects(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(projects.created_by_id = ? OR projects.id IN ("+assignedProjectIDs+"))", u.ID, u.ID)
	}
}

func (managerVisibility) Tasks(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id IN ("+managedProjectIDs+")", u.ID, u.ID)
	}
}

// Collaborators see only what they are assigned to.
type collaboratorVisibility struct{}

func (collaboratorVisibility) Projects(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("projects.id IN ("+assignedProjectIDs+")", u.ID)
	}
}

func (collaboratorVisibility) Tasks(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.id IN ("+assignedTaskIDs+")", u.ID)
	}
}

// Clients see the projects they commissioned and all of their tasks.
type clientVisibility struct{}

func (clientVisibility) Projects(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("projects.client_id = ?", u.ID)
	}
}

func (clientVisibility) Tasks(u *model.User) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id IN ("+clientProjectIDs+")", u.ID)
	}
}

type noVisibility struct{}

func (noVisibility) Projects(*model.User) Scope { return nothing }
func (noVisibility) Tasks(*model.User) Scope    { return nothing }

func all(db *gorm.DB) *gorm.DB { return db }

func nothing(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }
