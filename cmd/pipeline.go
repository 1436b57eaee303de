package cmd

import (
	"fmt"

	"github.com/killallgit/spectrogram-api/internal/services/decoder"
	"github.com/killallgit/spectrogram-api/internal/services/metadata"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	"github.com/killallgit/spectrogram-api/internal/services/render"
	"github.com/killallgit/spectrogram-api/internal/services/spectral"
	"github.com/killallgit/spectrogram-api/pkg/config"
	"github.com/killallgit/spectrogram-api/pkg/ffmpeg"
	"github.com/killallgit/spectrogram-api/pkg/share"
	"github.com/sirupsen/logrus"
)

// buildPipeline wires every stage from configuration. ffmpeg is optional:
// without it AAC/M4A cannot be decoded and metadata comes from native
// headers only.
func buildPipeline(cfg *config.Config, fetcher pipeline.Fetcher, opts ...pipeline.Option) (*pipeline.Service, error) {
	spectralCfg, err := cfg.SpectralConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	analyzer, err := spectral.New(spectralCfg)
	if err != nil {
		return nil, err
	}

	renderer := render.New(cfg.RenderOptions())
	if err := renderer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render configuration: %w", err)
	}

	decoderOpts := []decoder.Option{decoder.WithMaxDuration(cfg.Pipeline.MaxDuration)}
	var prober metadata.Prober

	ff := ffmpeg.New(cfg.Processing.FFmpegPath, cfg.Processing.FFprobePath, cfg.Processing.FFmpegTimeout)
	if err := ff.ValidateBinaries(); err != nil {
		logrus.WithError(err).Warn("ffmpeg not available, AAC/M4A decoding and ffprobe metadata disabled")
	} else {
		prober = ff
		decoderOpts = append(decoderOpts, decoder.WithFallback(decoder.NewFFmpegBackend(ff)))
	}

	logrus.WithFields(logrus.Fields{
		"window_size": spectralCfg.WindowSize,
		"hop_size":    spectralCfg.HopSize,
		"db_mode":     spectralCfg.Mode,
		"ffmpeg":      prober != nil,
	}).Debug("Pipeline configured")

	return pipeline.NewService(pipeline.Dependencies{
		Resolver:  share.DefaultRegistry(),
		Validator: cfg.Validator(),
		Fetcher:   fetcher,
		Metadata:  metadata.NewDefaultChain(prober),
		Decoder:   decoder.NewDefaultRegistry(decoderOpts...),
		Analyzer:  analyzer,
		Renderer:  renderer,
	}, opts...), nil
}
