package model

import "time"

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotifyTaskAssigned     NotificationType = "TASK_ASSIGNED"
	NotifyTaskCompleted    NotificationType = "TASK_COMPLETED"
	NotifyTaskOverdue      NotificationType = "TASK_OVERDUE"
	NotifyProjectAssigned  NotificationType = "PROJECT_ASSIGNED"
	NotifyProjectCompleted NotificationType = "PROJECT_COMPLETED"
	NotifyCommentAdded     NotificationType = "COMMENT_ADDED"
	NotifySystem           NotificationType = "SYSTEM"
)

// Notification is a per-user inbox entry.
type Notification struct {
	ID               uint             `gorm:"primaryKey"`
	UserID           uint             `gorm:"index;not null"`
	Title            string           `gorm:"size:200;not null"`
	Message          string           `gorm:"not null"`
	NotificationType NotificationType `gorm:"size:20;not null"`
	IsRead           bool             `gorm:"default:false"`
	ProjectID        *uint            `gorm:"index"`
	Project          *Project         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	TaskID           *uint            `gorm:"index"`
	Task             *Task            `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
}
