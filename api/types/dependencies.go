package types

import (
	"context"
	"net/http"

	"github.com/killallgit/spectrogram-api/internal/database"
	"github.com/killallgit/spectrogram-api/internal/services/history"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
)

// Submitter runs one spectrogram invocation, normally through the worker pool
type Submitter interface {
	Submit(ctx context.Context, requestID, shareURL string) (*pipeline.Result, error)
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB             *database.DB
	Spectrograms   Submitter
	History        history.Service // nil when history is disabled
	MetricsHandler http.Handler    // nil when monitoring is disabled
	Version        string
}
