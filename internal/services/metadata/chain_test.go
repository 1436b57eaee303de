package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/killallgit/spectrogram-api/internal/testutil"
	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/killallgit/spectrogram-api/pkg/ffmpeg"
	"github.com/stretchr/testify/assert"
)

type mockProber struct {
	result *ffmpeg.ProbeResult
	err    error
	calls  int
}

func (m *mockProber) Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error) {
	m.calls++
	return m.result, m.err
}

func TestExtract_NativeWAV(t *testing.T) {
	samples := testutil.Interleave(testutil.Sine(440, 44100, 44100), 2)
	path := testutil.WriteWAV(t, t.TempDir(), "tone.wav", samples, 44100, 2)

	prober := &mockProber{err: errors.New("should not be needed")}
	meta := NewDefaultChain(prober).Extract(context.Background(), path)

	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 16, meta.BitDepth)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, 1411, meta.BitrateKbps)
	assert.Equal(t, "wav", meta.Format)
	assert.InDelta(t, 1.0, meta.Duration, 0.01)
	assert.Equal(t, 0, prober.calls, "complete native metadata needs no probe")
	assert.Equal(t, "Stream 1 / 1: PCM 44100 Hz, 16 bits, channel 2, 1411 kbps", meta.StreamLine())
}

func TestExtract_NativeAIFF(t *testing.T) {
	path := testutil.WriteAIFF(t, t.TempDir(), "clip.aiff", testutil.Sine(220, 22050, 2205), 22050, 1)

	meta := NewDefaultChain(nil).Extract(context.Background(), path)

	assert.Equal(t, 22050, meta.SampleRate)
	assert.Equal(t, 16, meta.BitDepth)
	assert.Equal(t, 1, meta.Channels)
	assert.Equal(t, 352, meta.BitrateKbps)
}

func TestExtract_ProbeFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.m4a")
	assert.NoError(t, os.WriteFile(path, []byte("not parsed natively"), 0o600))

	prober := &mockProber{result: &ffmpeg.ProbeResult{
		FormatName: "mov,mp4,m4a,3gp,3g2,mj2",
		Codec:      "aac",
		SampleRate: 48000,
		Channels:   2,
		Bitrate:    256000,
	}}
	meta := NewDefaultChain(prober).Extract(context.Background(), path)

	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, 48000, meta.SampleRate)
	assert.Equal(t, audio.Unknown, meta.BitDepth, "lossy streams have no bit depth")
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, 256, meta.BitrateKbps)
	assert.Equal(t, "Stream 1 / 1: PCM 48000 Hz, Unknown bits, channel 2, 256 kbps", meta.StreamLine())
}

func TestExtract_NothingReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	assert.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	prober := &mockProber{err: ffmpeg.ErrInvalidAudioFile}
	meta := NewDefaultChain(prober).Extract(context.Background(), path)

	assert.Equal(t, audio.UnknownMetadata(), meta)
	assert.Equal(t, "Stream 1 / 1: PCM Unknown Hz, Unknown bits, channel 1, Unknown bitrate", meta.StreamLine())
}

func TestExtract_MergesUnknownFields(t *testing.T) {
	first := staticSource{meta: audio.Metadata{SampleRate: 44100, BitDepth: audio.Unknown, Channels: 2, BitrateKbps: audio.Unknown, Format: "x"}}
	second := staticSource{meta: audio.Metadata{SampleRate: 8000, BitDepth: 24, Channels: 1, BitrateKbps: 128}}

	meta := NewChain(first, second).Extract(context.Background(), "ignored")

	assert.Equal(t, 44100, meta.SampleRate, "earlier sources win")
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, 24, meta.BitDepth)
	assert.Equal(t, 128, meta.BitrateKbps)
	assert.Equal(t, "x", meta.Format)
}

type staticSource struct {
	meta audio.Metadata
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Read(context.Context, string) (audio.Metadata, error) {
	return s.meta, nil
}
