package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

// ActivityRepository appends to and reads the audit log.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// CountActionContaining counts rows since the given time whose action contains
// substr, ignoring case.
func (r *ActivityRepository) CountActionContaining(ctx context.Context, substr string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ActivityLog{}).
		Where("LOWER(action) LIKE ? AND created_at >= ?", "%"+strings.ToLower(substr)+"%", since).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	if err := r.db.WithContext(ctx).Preload("User").Preload("Project").Preload("Task").
		Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
