package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Preload("ProjectAssignments").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", model.NormalizeEmail(email)).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Preload("ProjectAssignments").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListByRoles returns users holding any of roles, with their project assignments.
func (r *UserRepository) ListByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Preload("ProjectAssignments").
		Where("role IN ?", roles).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByTelegramChatID returns the user linked to a Telegram chat.
func (r *UserRepository) FindByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountProjectAssignments counts the projects a user belongs to, whatever the role in them.
func (r *UserRepository) CountProjectAssignments(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.ProjectAssignment{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CountTaskAssignmentsInProject counts the tasks of one project a user is assigned to.
func (r *UserRepository) CountTaskAssignmentsInProject(ctx context.Context, userID, projectID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TaskAssignment{}).
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("task_assignments.user_id = ? AND tasks.project_id = ?", userID, projectID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) Save(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// RecordLogin stores the time and address of a successful login.
func (r *UserRepository) RecordLogin(ctx context.Context, user *model.User, at time.Time, ip string) error {
	updates := map[string]interface{}{"last_login": at}
	if ip != "" {
		updates["last_login_ip"] = ip
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// Delete removes a user together with the projects they created or commission
// and every row that references them.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projectIDs []uint
		if err := tx.Model(&model.Project{}).Where("created_by_id = ? OR client_id = ?", id, id).
			Pluck("id", &projectIDs).Error; err != nil {
			return fmt.Errorf("find owned projects: %w", err)
		}
		if err := deleteProjects(tx, projectIDs); err != nil {
			return err
		}

		var taskIDs []uint
		if err := tx.Model(&model.Task{}).Where("created_by_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return fmt.Errorf("find created tasks: %w", err)
		}
		if err := deleteTasks(tx, taskIDs); err != nil {
			return err
		}

		for _, m := range []interface{}{
			&model.ProjectAssignment{}, &model.TaskAssignment{}, &model.TaskComment{},
			&model.Notification{}, &model.PasswordResetCode{}, &model.ActivityLog{},
		} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete user rows: %w", err)
			}
		}

		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
