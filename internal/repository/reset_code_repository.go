package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

// ResetCodeRepository stores password reset codes.
type ResetCodeRepository struct {
	db *gorm.DB
}

func NewResetCodeRepository(db *gorm.DB) *ResetCodeRepository {
	return &ResetCodeRepository{db: db}
}

// InvalidateForUser marks every unused code of the user as used.
func (r *ResetCodeRepository) InvalidateForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.PasswordResetCode{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Update("is_used", true).Error; err != nil {
		return fmt.Errorf("invalidate reset codes: %w", err)
	}
	return nil
}

func (r *ResetCodeRepository) Create(ctx context.Context, code *model.PasswordResetCode) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(code).Error; err != nil {
		return fmt.Errorf("create reset code: %w", err)
	}
	return nil
}

// LatestUnused returns the most recently issued unused code of the user.
func (r *ResetCodeRepository) LatestUnused(ctx context.Context, userID uint) (*model.PasswordResetCode, error) {
	var code model.PasswordResetCode
	if err := r.db.WithContext(ctx).Where("user_id = ? AND is_used = ?", userID, false).
		Order("created_at DESC, id DESC").First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *ResetCodeRepository) MarkUsed(ctx context.Context, code *model.PasswordResetCode) error {
	code.IsUsed = true
	if err := r.db.WithContext(ctx).Model(code).Update("is_used", true).Error; err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	return nil
}

// Purge deletes codes that are used or were issued before cutoff.
func (r *ResetCodeRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("is_used = ? OR created_at < ?", true, cutoff).
		Delete(&model.PasswordResetCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge reset codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ResetCodeRepository) ListByUser(ctx context.Context, userID uint) ([]model.PasswordResetCode, error) {
	var codes []model.PasswordResetCode
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// UsedCodeExists reports whether code was issued to the user and has since been used or superseded.
func (r *ResetCodeRepository) UsedCodeExists(ctx context.Context, userID uint, code string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.PasswordResetCode{}).
		Where("user_id = ? AND code = ? AND is_used = ?", userID, code, true).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
