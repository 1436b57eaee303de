package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/killallgit/spectrogram-api/pkg/share"
	"github.com/sirupsen/logrus"
)

// TempPattern is the os.MkdirTemp pattern of per-invocation directories
const TempPattern = "spectro-*"

// Dependencies are the components one invocation runs through
type Dependencies struct {
	Resolver  LinkResolver
	Validator FormatValidator
	Fetcher   Fetcher
	Metadata  MetadataExtractor
	Decoder   AudioDecoder
	Analyzer  SpectralAnalyzer
	Renderer  Renderer
}

// Service runs the spectrogram pipeline. It keeps no per-invocation state
// and may be called concurrently.
type Service struct {
	deps     Dependencies
	tempDir  string
	observer Observer
}

// Option configures a Service
type Option func(*Service)

// WithTempDir sets the parent of per-invocation directories. Empty uses
// the system default.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithObserver reports stage timings to o
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates a pipeline service
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{deps: deps}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns the spectrogram for a share link
func (s *Service) Generate(ctx context.Context, shareURL string) (*audio.SpectrogramImage, error) {
	result, err := s.GenerateReport(ctx, shareURL)
	if err != nil {
		return nil, err
	}
	return result.Image, nil
}

// GenerateReport runs every stage and returns the image with its details.
// The first failing stage's error is returned unchanged. The scoped temp
// directory is removed on every path.
func (s *Service) GenerateReport(ctx context.Context, shareURL string) (*Result, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "GenerateReport",
		"url":      shareURL,
	})

	result := &Result{
		Asset:   audio.Asset{SourceURL: shareURL},
		Timings: make(map[Stage]time.Duration, len(Stages)),
	}

	err := s.run(ctx, result, logger)
	if err != nil {
		entry := logger.WithField("code", apperrors.GetCode(err))
		if apperrors.Is(err, apperrors.ErrCodeRender) || apperrors.GetCode(err) == apperrors.ErrCodeInternal {
			entry.WithError(err).Error("Spectrogram generation failed")
		} else {
			entry.WithError(err).Warn("Spectrogram generation failed")
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"filename": result.Image.Filename,
		"bytes":    len(result.Image.Bytes),
		"elapsed":  result.Total().String(),
	}).Info("Spectrogram generated")

	return result, nil
}

func (s *Service) run(ctx context.Context, result *Result, logger *logrus.Entry) error {
	var err error

	// Resolve the link and derive the filename from the original URL
	err = s.stage(ctx, result, StageResolve, func() error {
		direct, provider, err := s.deps.Resolver.Resolve(result.Asset.SourceURL)
		if err != nil {
			return apperrors.InvalidInput("url", err.Error())
		}
		name, err := share.FilenameFromURL(result.Asset.SourceURL)
		if err != nil {
			return apperrors.InvalidInput("url", err.Error())
		}
		result.Asset.DirectURL = direct
		result.Asset.Filename = name
		result.Provider = provider
		return nil
	})
	if err != nil {
		return err
	}

	logger = logger.WithFields(logrus.Fields{
		"filename": result.Asset.Filename,
		"provider": result.Provider,
	})

	// Reject unsupported formats before any transfer
	err = s.stage(ctx, result, StageValidate, func() error {
		return s.deps.Validator.Validate(result.Asset.Filename)
	})
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(s.tempDir, TempPattern)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create temporary storage")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.WithError(rmErr).WithField("dir", dir).Warn("Failed to remove temporary storage")
		}
	}()

	err = s.stage(ctx, result, StageDownload, func() error {
		dl, err := s.deps.Fetcher.DownloadToDir(ctx, result.Asset.DirectURL, dir, result.Asset.Filename)
		if err != nil {
			return err
		}
		result.Asset.LocalPath = dl.FilePath
		result.DownloadBytes = dl.ContentLength
		return nil
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, result, StageMetadata, func() error {
		result.Metadata = s.deps.Metadata.Extract(ctx, result.Asset.LocalPath)
		return nil
	})
	if err != nil {
		return err
	}

	var samples *audio.SampleBuffer
	err = s.stage(ctx, result, StageDecode, func() error {
		samples, err = s.deps.Decoder.Decode(ctx, result.Asset.LocalPath)
		return err
	})
	if err != nil {
		return err
	}
	result.SampleRate = samples.SampleRate
	result.Duration = samples.Duration()

	var matrix *audio.SpectralMatrix
	err = s.stage(ctx, result, StageAnalyze, func() error {
		matrix, err = s.deps.Analyzer.Analyze(ctx, samples)
		return err
	})
	if err != nil {
		return err
	}
	result.Rows, result.Cols = matrix.Rows(), matrix.Cols()

	return s.stage(ctx, result, StageRender, func() error {
		img, err := s.deps.Renderer.Render(matrix, result.Metadata, result.Asset.Filename)
		if err != nil {
			return err
		}
		result.Image = img
		return nil
	})
}

// stage times fn, reports it and normalizes untagged errors
func (s *Service) stage(ctx context.Context, result *Result, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return contextError(stage, err)
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	result.Timings[stage] = elapsed
	if s.observer != nil {
		s.observer.ObserveStage(stage, elapsed)
	}

	logrus.WithFields(logrus.Fields{
		"stage":   stage,
		"elapsed": elapsed.String(),
	}).Debug("Pipeline stage finished")

	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(stage, ctxErr)
	}
	return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "%s stage failed", stage)
}

func contextError(stage Stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Newf(apperrors.ErrCodeAPITimeout, "%s timed out", stage).WithCause(err)
	}
	return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "%s stage cancelled", stage)
}
