package repository

import (
	"context"

	"learnpath_backend/internal/model"

	"gorm.io/gorm"
)

type PendingProjectionRepository struct {
	DB *gorm.DB
}

func NewPendingProjectionRepository(db *gorm.DB) *PendingProjectionRepository {
	return &PendingProjectionRepository{DB: db}
}

func (r *PendingProjectionRepository) Create(ctx context.Context, p *model.PendingProjection) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

// ListDue 取重试次数未超限的记录，最早的优先
func (r *PendingProjectionRepository) ListDue(ctx context.Context, maxRetries, limit int) ([]model.PendingProjection, error) {
	var rows []model.PendingProjection
	err := r.DB.WithContext(ctx).
		Where("retries < ?", maxRetries).
		Order("id asc").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *PendingProjectionRepository) MarkFailed(ctx context.Context, id uint, lastError string) error {
	return r.DB.WithContext(ctx).Model(&model.PendingProjection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retries":    gorm.Expr("retries + 1"),
			"last_error": lastError,
		}).Error
}

// Delete 物理删除，已投影成功的记录无需保留
func (r *PendingProjectionRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Unscoped().Delete(&model.PendingProjection{}, id).Error
}

func (r *PendingProjectionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.PendingProjection{}).Count(&n).Error
	return n, err
}
