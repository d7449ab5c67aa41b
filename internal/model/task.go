package model

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus doubles as the kanban column.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskInReview   TaskStatus = "IN_REVIEW"
	TaskDone       TaskStatus = "DONE"
)

// KanbanColumns is the fixed column order of a board.
var KanbanColumns = []TaskStatus{TaskTodo, TaskInProgress, TaskInReview, TaskDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskInReview, TaskDone:
		return true
	}
	return false
}

// Task represents a single item on a project's board.
type Task struct {
	ID             uint       `gorm:"primaryKey"`
	Title          string     `gorm:"size:200;not null"`
	Description    string     `gorm:"not null"`
	ProjectID      uint       `gorm:"index;not null"`
	Project        *Project   `gorm:"foreignKey:ProjectID"`
	CreatedByID    uint       `gorm:"index;not null"`
	CreatedBy      *User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE"`
	Status         TaskStatus `gorm:"size:20;default:TODO;index"`
	Priority       Priority   `gorm:"size:20;default:MEDIUM"`
	DueDate        time.Time  `gorm:"index"`
	CompletedAt    *time.Time
	EstimatedHours *float64 `gorm:"type:numeric(5,2)"`
	ActualHours    *float64 `gorm:"type:numeric(5,2)"`
	Position       uint     `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TaskAssignment grants a user membership on a task.
type TaskAssignment struct {
	ID           uint  `gorm:"primaryKey"`
	TaskID       uint  `gorm:"uniqueIndex:idx_task_user;not null"`
	UserID       uint  `gorm:"uniqueIndex:idx_task_user;index;not null"`
	User         *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AssignedByID uint
	AssignedBy   *User     `gorm:"foreignKey:AssignedByID"`
	AssignedAt   time.Time `gorm:"autoCreateTime"`
}

// TaskOrder is the natural ordering of tasks.
const TaskOrder = "tasks.position ASC, tasks.created_at DESC"

// SyncCompletion keeps CompletedAt in step with Status: set on entering DONE,
// kept while DONE, cleared on leaving it.
func (t *Task) SyncCompletion(now time.Time) {
	switch {
	case t.Status == TaskDone && t.CompletedAt == nil:
		t.CompletedAt = &now
	case t.Status != TaskDone:
		t.CompletedAt = nil
	}
}

// BeforeSave runs SyncCompletion on every create and save of a task struct.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.SyncCompletion(time.Now().UTC())
	return nil
}

// IsOverdue reports whether an unfinished task is past its due date.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Status == TaskDone {
		return false
	}
	return now.After(t.DueDate)
}

// DaysUntilDue counts calendar days from now to the due date; nil when DONE.
func (t Task) DaysUntilDue(now time.Time) *int {
	if t.Status == TaskDone {
		return nil
	}
	due := t.DueDate.In(now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(dueDay.Sub(today).Hours() / 24)
	return &days
}

// AssignedUsers lists the users of preloaded assignments.
func (t Task) AssignedUsers() []User {
	users := make([]User, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		if a.User != nil {
			users = append(users, *a.User)
		}
	}
	return users
}

// TaskComment is a note left on a task.
type TaskComment struct {
	ID         uint  `gorm:"primaryKey"`
	TaskID     uint  `gorm:"index;not null"`
	UserID     uint  `gorm:"index;not null"`
	User       *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Content    string `gorm:"not null"`
	Attachment string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
