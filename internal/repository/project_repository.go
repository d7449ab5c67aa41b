package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
	"taskhub/internal/policy"
)

// ProjectRepository manages projects and their assignments.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ProjectFilter narrows a visible project listing.
type ProjectFilter struct {
	Status model.ProjectStatus
	Limit  int
}

const projectOrder = "projects.created_at DESC, projects.id DESC"

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) CreateAssignment(ctx context.Context, a *model.ProjectAssignment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("create project assignment: %w", err)
	}
	return nil
}

// FindByID looks a project up without any visibility check.
func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindVisible loads a project with its relations if scope admits it.
func (r *ProjectRepository) FindVisible(ctx context.Context, scope policy.Scope, id uint) (*model.Project, error) {
	var project model.Project
	err := r.withRelations(r.db.WithContext(ctx)).Scopes(scope).
		Where("projects.id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Load fetches a project with its relations regardless of visibility.
func (r *ProjectRepository) Load(ctx context.Context, id uint) (*model.Project, error) {
	return r.FindVisible(ctx, unscoped, id)
}

func (r *ProjectRepository) ListVisible(ctx context.Context, scope policy.Scope, filter ProjectFilter) ([]model.Project, error) {
	q := r.withRelations(r.db.WithContext(ctx)).Scopes(scope).Order(projectOrder)
	if filter.Status != "" {
		q = q.Where("projects.status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var projects []model.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) CountVisible(ctx context.Context, scope policy.Scope, status model.ProjectStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{}).Scopes(scope)
	if status != "" {
		q = q.Where("projects.status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ProjectRepository) Save(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error; err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Delete removes a project with its tasks, assignments, comments and notifications.
func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Project{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("find project: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteProjects(tx, []uint{id})
	})
}

func (r *ProjectRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CreatedBy").
		Preload("Client").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("project_assignments.id ASC")
		}).
		Preload("Assignments.User").
		Preload("Assignments.AssignedBy").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "project_id", "status")
		})
}

func unscoped(db *gorm.DB) *gorm.DB { return db }

func deleteProjects(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var taskIDs []uint
	if err := tx.Model(&model.Task{}).Where("project_id IN ?", ids).Pluck("id", &taskIDs).Error; err != nil {
		return fmt.Errorf("find project tasks: %w", err)
	}
	if err := deleteTasks(tx, taskIDs); err != nil {
		return err
	}
	if err := tx.Where("project_id IN ?", ids).Delete(&model.ProjectAssignment{}).Error; err != nil {
		return fmt.Errorf("delete project assignments: %w", err)
	}
	if err := tx.Where("project_id IN ?", ids).Delete(&model.Notification{}).Error; err != nil {
		return fmt.Errorf("delete project notifications: %w", err)
	}
	if err := tx.Model(&model.ActivityLog{}).Where("project_id IN ?", ids).Update("project_id", nil).Error; err != nil {
		return fmt.Errorf("detach project activity: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Project{}).Error; err != nil {
		return fmt.Errorf("delete projects: %w", err)
	}
	return nil
}

func deleteTasks(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&model.TaskAssignment{}).Error; err != nil {
		return fmt.Errorf("delete task assignments: %w", err)
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&model.TaskComment{}).Error; err != nil {
		return fmt.Errorf("delete task comments: %w", err)
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&model.Notification{}).Error; err != nil {
		return fmt.Errorf("delete task notifications: %w", err)
	}
	if err := tx.Model(&model.ActivityLog{}).Where("task_id IN ?", ids).Update("task_id", nil).Error; err != nil {
		return fmt.Errorf("detach task activity: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}
