package model

import "time"

// ProjectStatus tracks a project through its life.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectCancelled ProjectStatus = "CANCELLED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Project groups tasks and the users working on them.
type Project struct {
	ID          uint          `gorm:"primaryKey"`
	Name        string        `gorm:"size:200;not null"`
	Description string        `gorm:"not null"`
	Status      ProjectStatus `gorm:"size:20;default:PLANNING;index"`
	Priority    Priority      `gorm:"size:20;default:MEDIUM"`
	CreatedByID uint          `gorm:"index;not null"`
	CreatedBy   *User         `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	ClientID    uint          `gorm:"index;not null"`
	Client      *User         `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	StartDate   time.Time
	EndDate     time.Time
	Budget      *float64 `gorm:"type:numeric(10,2)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Assignments []ProjectAssignment `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Tasks       []Task              `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// ProjectAssignment grants a user membership on a project.
type ProjectAssignment struct {
	ID            uint  `gorm:"primaryKey"`
	ProjectID     uint  `gorm:"uniqueIndex:idx_project_user;not null"`
	UserID        uint  `gorm:"uniqueIndex:idx_project_user;index;not null"`
	User          *User `gorm:"foreignKey:UserID"`
	AssignedByID  uint
	AssignedBy    *User `gorm:"foreignKey:AssignedByID"`
	AssignedAt    time.Time `gorm:"autoCreateTime"`
	RoleInProject Role      `gorm:"size:20"`
}

// RoleInProjectFor maps a user role onto the roles a project assignment accepts.
func RoleInProjectFor(r Role) Role {
	switch r {
	case RoleManager, RoleCollaborator, RoleClient:
		return r
	}
	return RoleManager
}

// TaskStats counts a project's tasks per status.
type TaskStats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	InReview   int `json:"in_review"`
	Done       int `json:"done"`
}

// TaskStats requires Tasks to be preloaded.
func (p Project) TaskStats() TaskStats {
	var s TaskStats
	for _, t := range p.Tasks {
		s.Total++
		switch t.Status {
		case TaskTodo:
			s.Todo++
		case TaskInProgress:
			s.InProgress++
		case TaskInReview:
			s.InReview++
		case TaskDone:
			s.Done++
		}
	}
	return s
}

// ProgressPercentage is the share of DONE tasks, 0 when the project has none.
func (p Project) ProgressPercentage() float64 {
	s := p.TaskStats()
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// AssignedUsers lists the users of preloaded assignments in assignment order.
func (p Project) AssignedUsers() []User {
	users := make([]User, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		if a.User != nil {
			users = append(users, *a.User)
		}
	}
	return users
}
