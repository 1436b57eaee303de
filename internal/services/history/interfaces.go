package history

import (
	"context"
	"time"

	"github.com/killallgit/spectrogram-api/internal/models"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
)

// Service records and lists spectrogram invocations
type Service interface {
	// Record stores the outcome of one invocation
	Record(ctx context.Context, requestID, shareURL string, result *pipeline.Result, err error, elapsed time.Duration) (*models.Render, error)

	// Get retrieves a render by request ID
	Get(ctx context.Context, requestID string) (*models.Render, error)

	// List returns renders newest first along with the total count
	List(ctx context.Context, limit, offset int) ([]models.Render, int64, error)
}

// Repository defines data access for renders
type Repository interface {
	// Create saves a new render
	Create(ctx context.Context, render *models.Render) error

	// GetByRequestID retrieves a render by request ID
	GetByRequestID(ctx context.Context, requestID string) (*models.Render, error)

	// List returns renders ordered by creation time, newest first
	List(ctx context.Context, limit, offset int) ([]models.Render, error)

	// Count returns the number of stored renders
	Count(ctx context.Context) (int64, error)
}
