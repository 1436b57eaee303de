package history

import (
	"context"
	"time"

	"github.com/killallgit/spectrogram-api/internal/models"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type clientRequestIDKey struct{}

// WithClientRequestID attaches the caller's own request ID to ctx. Callers
// may repeat an ID, so it is stored beside the server-assigned one.
func WithClientRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, clientRequestIDKey{}, id)
}

// ClientRequestID returns the ID set by WithClientRequestID, if any
func ClientRequestID(ctx context.Context) string {
	id, _ := ctx.Value(clientRequestIDKey{}).(string)
	return id
}

// service implements Service
type service struct {
	repo Repository
}

// NewService creates a new history service
func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

// Record stores the outcome of one invocation
func (s *service) Record(ctx context.Context, requestID, shareURL string, result *pipeline.Result, err error, elapsed time.Duration) (*models.Render, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	render := &models.Render{
		RequestID:       requestID,
		ClientRequestID: ClientRequestID(ctx),
		SourceURL:       shareURL,
		Status:          models.RenderStatusSucceeded,
		ProcessingMS:    elapsed.Milliseconds(),
	}

	if result != nil {
		render.Provider = result.Provider
		render.Filename = result.Asset.Filename
		render.SampleRate = result.Metadata.SampleRate
		render.BitDepth = result.Metadata.BitDepth
		render.Channels = result.Metadata.Channels
		render.BitrateKbps = result.Metadata.BitrateKbps
		render.DurationSeconds = result.Duration
		if result.Image != nil {
			render.ImageBytes = len(result.Image.Bytes)
		}
	}

	if err != nil {
		render.Status = models.RenderStatusFailed
		render.ErrorCode = string(apperrors.GetCode(err))
		render.ErrorMessage = apperrors.UserMessage(err)
	}

	if createErr := s.repo.Create(ctx, render); createErr != nil {
		logrus.WithError(createErr).WithField("request_id", requestID).Warn("Failed to record render")
		return nil, apperrors.DatabaseError("create render", createErr)
	}

	return render, nil
}

// Get retrieves a render by request ID
func (s *service) Get(ctx context.Context, requestID string) (*models.Render, error) {
	if requestID == "" {
		return nil, apperrors.InvalidInput("id", ErrInvalidRequestID.Error())
	}

	render, err := s.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		if err == ErrRenderNotFound {
			return nil, apperrors.NotFound("render", requestID)
		}
		return nil, apperrors.DatabaseError("get render", err)
	}
	return render, nil
}

// List returns renders newest first along with the total count
func (s *service) List(ctx context.Context, limit, offset int) ([]models.Render, int64, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	renders, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("list renders", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("count renders", err)
	}

	return renders, total, nil
}
