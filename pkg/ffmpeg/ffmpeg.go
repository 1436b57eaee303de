package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
)

// FFmpeg wraps ffmpeg and ffprobe functionality
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

// New creates a new FFmpeg instance
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}

	return nil
}

// DecodePCM decodes the first audio stream of filePath to interleaved
// float32 samples. Neither the sample rate nor the channel layout is
// changed.
func (f *FFmpeg) DecodePCM(ctx context.Context, filePath string) (*PCMData, error) {
	probe, err := f.Probe(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if probe.SampleRate <= 0 || probe.Channels <= 0 {
		return nil, NewProcessingError("pcm_decode", filePath,
			fmt.Errorf("%w: stream reports %d Hz, %d channels", ErrInvalidAudioFile, probe.SampleRate, probe.Channels), "")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-i", filePath,
		"-map", "0:a:0",
		"-f", "f32le", // 32-bit float little-endian
		"-acodec", "pcm_f32le",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logrus.WithFields(logrus.Fields{
		"function": "DecodePCM",
		"file":     filePath,
	}).Debug("Decoding with ffmpeg")

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("pcm_decode", filePath, err, stderr.String())
	}

	samples := bytesToFloat32s(stdout.Bytes())
	if len(samples) < probe.Channels {
		return nil, NewProcessingError("pcm_decode", filePath, ErrNoSamples, "")
	}

	// Drop a trailing partial frame, if any
	samples = samples[:len(samples)-len(samples)%probe.Channels]

	return &PCMData{
		Samples:    samples,
		SampleRate: probe.SampleRate,
		Channels:   probe.Channels,
	}, nil
}

// bytesToFloat32s converts little-endian f32 bytes to samples
func bytesToFloat32s(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
