package api

import (
	"time"

	"taskhub/internal/model"
	"taskhub/internal/service"
)

// JSON shapes returned by the API. Derived fields are computed here, on read.

type userBrief struct {
	ID       uint       `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

type sessionUser struct {
	ID             uint       `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FullName       string     `json:"full_name"`
	Role           model.Role `json:"role"`
	ProfilePicture string     `json:"profile_picture"`
	IsOnline       bool       `json:"is_online"`
}

type userView struct {
	ID             uint       `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FullName       string     `json:"full_name"`
	Role           model.Role `json:"role"`
	Phone          string     `json:"phone"`
	ProfilePicture string     `json:"profile_picture"`
	IsActive       bool       `json:"is_active"`
	IsOnline       bool       `json:"is_online"`
	LastLogin      *time.Time `json:"last_login"`
	TelegramChatID *int64     `json:"telegram_chat_id"`
	DateJoined     time.Time  `json:"date_joined"`
	ProjectCount   int        `json:"project_count"`
}

type assignmentView struct {
	ID            uint       `json:"id"`
	User          *userBrief `json:"user"`
	RoleInProject model.Role `json:"role_in_project"`
	AssignedBy    *userBrief `json:"assigned_by"`
	AssignedAt    time.Time  `json:"assigned_at"`
}

type projectBrief struct {
	ID     uint                `json:"id"`
	Name   string              `json:"name"`
	Status model.ProjectStatus `json:"status"`
}

type projectView struct {
	ID                 uint                `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Status             model.ProjectStatus `json:"status"`
	Priority           model.Priority      `json:"priority"`
	CreatedBy          *userBrief          `json:"created_by"`
	Client             *userBrief          `json:"client"`
	StartDate          string              `json:"start_date"`
	EndDate            string              `json:"end_date"`
	Budget             *float64            `json:"budget"`
	AssignedUsers      []userBrief         `json:"assigned_users"`
	Assignments        []assignmentView    `json:"assignments"`
	ProgressPercentage float64             `json:"progress_percentage"`
	TaskStats          model.TaskStats     `json:"task_stats"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type projectCreated struct {
	projectView
	SkippedAssignments []service.SkippedAssignment `json:"skipped_assignments"`
}

type commentView struct {
	ID         uint       `json:"id"`
	Task       uint       `json:"task"`
	User       *userBrief `json:"user"`
	Content    string     `json:"content"`
	Attachment string     `json:"attachment"`
	CreatedAt  time.Time  `json:"created_at"`
}

type taskView struct {
	ID             uint             `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Project        *projectBrief    `json:"project"`
	CreatedBy      *userBrief       `json:"created_by"`
	Status         model.TaskStatus `json:"status"`
	Priority       model.Priority   `json:"priority"`
	DueDate        time.Time        `json:"due_date"`
	CompletedAt    *time.Time       `json:"completed_at"`
	EstimatedHours *float64         `json:"estimated_hours"`
	ActualHours    *float64         `json:"actual_hours"`
	Position       uint             `json:"position"`
	AssignedTo     []userBrief      `json:"assigned_to"`
	Comments       []commentView    `json:"comments"`
	IsOverdue      bool             `json:"is_overdue"`
	DaysUntilDue   *int             `json:"days_until_due"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type taskCreated struct {
	taskView
	SkippedAssignments []service.SkippedAssignment `json:"skipped_assignments"`
}

type notificationView struct {
	ID               uint                   `json:"id"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	NotificationType model.NotificationType `json:"notification_type"`
	IsRead           bool                   `json:"is_read"`
	Project          *uint                  `json:"project"`
	Task             *uint                  `json:"task"`
	CreatedAt        time.Time              `json:"created_at"`
}

type activityView struct {
	ID          uint       `json:"id"`
	User        *userBrief `json:"user"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
	Project     *uint      `json:"project"`
	Task        *uint      `json:"task"`
	IPAddress   *string    `json:"ip_address"`
	CreatedAt   time.Time  `json:"created_at"`
}

func briefOf(u *model.User) *userBrief {
	if u == nil {
		return nil
	}
	return &userBrief{ID: u.ID, Email: u.Email, FullName: u.FullName(), Role: u.Role}
}

func briefs(users []model.User) []userBrief {
	out := make([]userBrief, 0, len(users))
	for i := range users {
		out = append(out, *briefOf(&users[i]))
	}
	return out
}

func sessionUserOf(u *model.User) sessionUser {
	return sessionUser{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		IsOnline:       u.IsOnline,
	}
}

func userViewOf(u *model.User) userView {
	return userView{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		Role:           u.Role,
		Phone:          u.Phone,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		IsOnline:       u.IsOnline,
		LastLogin:      u.LastLogin,
		TelegramChatID: u.TelegramChatID,
		DateJoined:     u.CreatedAt,
		ProjectCount:   u.ProjectCount(),
	}
}

func userViews(users []model.User) []userView {
	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, userViewOf(&users[i]))
	}
	return out
}

func projectViewOf(p *model.Project) projectView {
	v := projectView{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Status:             p.Status,
		Priority:           p.Priority,
		CreatedBy:          briefOf(p.CreatedBy),
		Client:             briefOf(p.Client),
		StartDate:          p.StartDate.Format(time.DateOnly),
		EndDate:            p.EndDate.Format(time.DateOnly),
		Budget:             p.Budget,
		AssignedUsers:      briefs(p.AssignedUsers()),
		Assignments:        make([]assignmentView, 0, len(p.Assignments)),
		ProgressPercentage: p.ProgressPercentage(),
		TaskStats:          p.TaskStats(),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	for _, a := range p.Assignments {
		v.Assignments = append(v.Assignments, assignmentView{
			ID:            a.ID,
			User:          briefOf(a.User),
			RoleInProject: a.RoleInProject,
			AssignedBy:    briefOf(a.AssignedBy),
			AssignedAt:    a.AssignedAt,
		})
	}
	return v
}

func projectViews(projects []model.Project) []projectView {
	out := make([]projectView, 0, len(projects))
	for i := range projects {
		out = append(out, projectViewOf(&projects[i]))
	}
	return out
}

func commentViewOf(c *model.TaskComment) commentView {
	return commentView{
		ID:         c.ID,
		Task:       c.TaskID,
		User:       briefOf(c.User),
		Content:    c.Content,
		Attachment: c.Attachment,
		CreatedAt:  c.CreatedAt,
	}
}

func commentViews(comments []model.TaskComment) []commentView {
	out := make([]commentView, 0, len(comments))
	for i := range comments {
		out = append(out, commentViewOf(&comments[i]))
	}
	return out
}

func taskViewOf(t *model.Task, now time.Time) taskView {
	v := taskView{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		CreatedBy:      briefOf(t.CreatedBy),
		Status:         t.Status,
		Priority:       t.Priority,
		DueDate:        t.DueDate,
		CompletedAt:    t.CompletedAt,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		Position:       t.Position,
		AssignedTo:     briefs(t.AssignedUsers()),
		Comments:       commentViews(t.Comments),
		IsOverdue:      t.IsOverdue(now),
		DaysUntilDue:   t.DaysUntilDue(now),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.Project != nil {
		v.Project = &projectBrief{ID: t.Project.ID, Name: t.Project.Name, Status: t.Project.Status}
	} else {
		v.Project = &projectBrief{ID: t.ProjectID}
	}
	return v
}

func taskViews(tasks []model.Task, now time.Time) []taskView {
	out := make([]taskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskViewOf(&tasks[i], now))
	}
	return out
}

func notificationViews(items []model.Notification) []notificationView {
	out := make([]notificationView, 0, len(items))
	for _, n := range items {
		out = append(out, notificationView{
			ID:               n.ID,
			Title:            n.Title,
			Message:          n.Message,
			NotificationType: n.NotificationType,
			IsRead:           n.IsRead,
			Project:          n.ProjectID,
			Task:             n.TaskID,
			CreatedAt:        n.CreatedAt,
		})
	}
	return out
}

func activityViews(entries []model.ActivityLog) []activityView {
	out := make([]activityView, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityView{
			ID:          e.ID,
			User:        briefOf(e.User),
			Action:      e.Action,
			Description: e.Description,
			Project:     e.ProjectID,
			Task:        e.TaskID,
			IPAddress:   e.IPAddress,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
