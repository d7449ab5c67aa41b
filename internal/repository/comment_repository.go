package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

// CommentRepository stores task comments.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.TaskComment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByTask returns a task's comments, newest first.
func (r *CommentRepository) ListByTask(ctx context.Context, taskID uint) ([]model.TaskComment, error) {
	var comments []model.TaskComment
	if err := r.db.WithContext(ctx).Preload("User").Where("task_id = ?", taskID).
		Order("created_at DESC, id DESC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
