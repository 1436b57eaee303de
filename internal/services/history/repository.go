package history

import (
	"context"
	"errors"

	"github.com/killallgit/spectrogram-api/internal/models"
	"gorm.io/gorm"
)

// repository implements Repository
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new render repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create saves a new render
func (r *repository) Create(ctx context.Context, render *models.Render) error {
	return r.db.WithContext(ctx).Create(render).Error
}

// GetByRequestID retrieves a render by request ID
func (r *repository) GetByRequestID(ctx context.Context, requestID string) (*models.Render, error) {
	var render models.Render
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&render).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRenderNotFound
		}
		return nil, err
	}

	return &render, nil
}

// List returns renders ordered by creation time, newest first
func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Render, error) {
	var renders []models.Render
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&renders).Error

	return renders, err
}

// Count returns the number of stored renders
func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Render{}).
		Count(&count).Error

	return count, err
}
