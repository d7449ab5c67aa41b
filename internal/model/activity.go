package model

import "time"

// Activity labels written by the service layer.
const (
	ActionLogin         = "LOGIN"
	ActionProjectCreate = "PROJECT_CREATED"
	ActionProjectUpdate = "PROJECT_UPDATED"
	ActionProjectDelete = "PROJECT_DELETED"
	ActionTaskCreate    = "TASK_CREATED"
	ActionTaskUpdate    = "TASK_UPDATED"
	ActionTaskDelete    = "TASK_DELETED"
	ActionMailError     = "MAIL_ERROR"
)

// ActivityLog is an append-only audit record.
type ActivityLog struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	User        *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Action      string `gorm:"size:100;not null"`
	Description string
	ProjectID   *uint    `gorm:"index"`
	Project     *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL"`
	TaskID      *uint    `gorm:"index"`
	Task        *Task    `gorm:"foreignKey:TaskID;constraint:OnDelete:SET NULL"`
	IPAddress   *string
	CreatedAt   time.Time `gorm:"index"`
}
