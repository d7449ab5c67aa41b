package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
	"taskhub/internal/policy"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilter narrows a visible task listing or count. Zero values mean "any".
type TaskFilter struct {
	ProjectID *uint
	Statuses  []model.TaskStatus
	DueBefore *time.Time
	Limit     int
}

func (f TaskFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ProjectID != nil {
		q = q.Where("tasks.project_id = ?", *f.ProjectID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("tasks.status IN ?", f.Statuses)
	}
	if f.DueBefore != nil {
		q = q.Where("tasks.due_date < ?", *f.DueBefore)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) CreateAssignment(ctx context.Context, a *model.TaskAssignment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return fmt.Errorf("create task assignment: %w", err)
	}
	return nil
}

// FindVisible loads a task with its relations if scope admits it.
func (r *TaskRepository) FindVisible(ctx context.Context, scope policy.Scope, id uint) (*model.Task, error) {
	var task model.Task
	err := r.withRelations(r.db.WithContext(ctx)).Scopes(scope).
		Where("tasks.id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Load fetches a task with its relations regardless of visibility.
func (r *TaskRepository) Load(ctx context.Context, id uint) (*model.Task, error) {
	return r.FindVisible(ctx, unscoped, id)
}

func (r *TaskRepository) ListVisible(ctx context.Context, scope policy.Scope, filter TaskFilter) ([]model.Task, error) {
	q := filter.apply(r.withRelations(r.db.WithContext(ctx)).Scopes(scope).Order(model.TaskOrder))
	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) CountVisible(ctx context.Context, scope policy.Scope, filter TaskFilter) (int64, error) {
	filter.Limit = 0
	q := filter.apply(r.db.WithContext(ctx).Model(&model.Task{}).Scopes(scope))
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// ListByProject returns every task of a project in natural order.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.withRelations(r.db.WithContext(ctx)).Where("tasks.project_id = ?", projectID).
		Order(model.TaskOrder).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListOverdueAssignments returns assignments of unfinished tasks due before now.
func (r *TaskRepository) ListOverdueAssignments(ctx context.Context, now time.Time) ([]model.TaskAssignment, error) {
	var assignments []model.TaskAssignment
	err := r.db.WithContext(ctx).
		Select("task_assignments.*").
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("tasks.due_date < ? AND tasks.status <> ?", now, model.TaskDone).
		Order("task_assignments.id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Delete removes a task with its assignments, comments and notifications.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Task{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("find task: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return deleteTasks(tx, []uint{id})
	})
}

func (r *TaskRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Project").
		Preload("CreatedBy").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_assignments.id ASC")
		}).
		Preload("Assignments.User").
		Preload("Assignments.AssignedBy").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("task_comments.created_at DESC, task_comments.id DESC")
		}).
		Preload("Comments.User")
}
