// Package decoder turns audio files into mono sample buffers at their
// native sample rate.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoAudio is returned by backends when a file decodes to zero frames
	ErrNoAudio = errors.New("no audio frames")
	// ErrTooLong is returned when audio exceeds the maximum duration. It is
	// never retried on the fallback.
	ErrTooLong = errors.New("audio exceeds maximum duration")
)

// Decoder decodes a file into a mono SampleBuffer
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.SampleBuffer, error)
}

// PCM is interleaved audio straight out of a backend
type PCM struct {
	Samples    []float64 // Interleaved, normalized to [-1, 1]
	SampleRate int
	Channels   int
}

// Backend decodes one family of containers
type Backend interface {
	// Name identifies the backend in logs
	Name() string
	// DecodeFile returns the file's interleaved samples
	DecodeFile(ctx context.Context, path string) (*PCM, error)
}

// Registry dispatches to a backend by file extension. Files whose
// extension has no registered backend, or whose native backend fails, go
// to the fallback when one is set.
type Registry struct {
	backends    map[string]Backend
	fallback    Backend
	maxDuration time.Duration
}

// Option configures a Registry
type Option func(*Registry)

// WithFallback sets the backend used for unknown extensions and failed
// native decodes
func WithFallback(b Backend) Option {
	return func(r *Registry) { r.fallback = b }
}

// WithMaxDuration rejects audio longer than d. Zero disables the limit.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Registry) { r.maxDuration = d }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry registers the pure Go backends for WAV, AIFF, MP3,
// Ogg Vorbis and FLAC
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.Register(WAVBackend{}, ".wav", ".wave")
	r.Register(AIFFBackend{}, ".aiff", ".aif")
	r.Register(MP3Backend{MaxDuration: r.maxDuration}, ".mp3")
	r.Register(VorbisBackend{MaxDuration: r.maxDuration}, ".ogg")
	r.Register(FLACBackend{MaxDuration: r.maxDuration}, ".flac")
	return r
}

// Register maps extensions to a backend
func (r *Registry) Register(b Backend, extensions ...string) {
	for _, ext := range extensions {
		r.backends[strings.ToLower(ext)] = b
	}
}

// Decode implements Decoder
func (r *Registry) Decode(ctx context.Context, path string) (*audio.SampleBuffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	logger := logrus.WithFields(logrus.Fields{
		"function": "Decode",
		"ext":      ext,
	})

	backend, ok := r.backends[ext]
	if !ok {
		backend = r.fallback
	}
	if backend == nil {
		return nil, apperrors.DecodeError(fmt.Sprintf("no decoder for %q files", ext), nil)
	}

	pcm, err := backend.DecodeFile(ctx, path)
	if err != nil && ok && r.fallback != nil && ctx.Err() == nil && !errors.Is(err, ErrTooLong) {
		logger.WithError(err).WithField("backend", backend.Name()).Debug("Native decode failed, trying fallback")
		backend = r.fallback
		pcm, err = backend.DecodeFile(ctx, path)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.DecodeError(reason(err), err).WithDetail("backend", backend.Name())
	}

	if pcm.Channels <= 0 || pcm.SampleRate <= 0 {
		return nil, apperrors.DecodeError("stream has no channels or sample rate", nil)
	}
	if len(pcm.Samples) < pcm.Channels {
		return nil, apperrors.DecodeError("no playable audio stream", ErrNoAudio)
	}

	buf := &audio.SampleBuffer{
		Samples:    Downmix(pcm.Samples, pcm.Channels),
		SampleRate: pcm.SampleRate,
	}

	if r.maxDuration > 0 && buf.Duration() > r.maxDuration.Seconds() {
		return nil, apperrors.DecodeError(ErrTooLong.Error(), ErrTooLong).
			WithDetail("duration", buf.Duration()).
			WithDetail("max_duration", r.maxDuration.String())
	}

	logger.WithFields(logrus.Fields{
		"backend":     backend.Name(),
		"channels":    pcm.Channels,
		"sample_rate": pcm.SampleRate,
		"frames":      len(buf.Samples),
	}).Debug("Decoded audio")

	return buf, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrNoAudio):
		return "no playable audio stream"
	case errors.Is(err, ErrTooLong):
		return ErrTooLong.Error()
	}
	return "container could not be parsed"
}

// Downmix averages interleaved channels into one. Mono input is copied.
// A trailing partial frame is dropped.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
