package metadata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/mewkiz/flac"
)

// NativeSource reads headers of uncompressed and lossless containers
// directly: WAV, AIFF and FLAC
type NativeSource struct{}

// Name implements Source
func (NativeSource) Name() string { return "native" }

// Read implements Source
func (NativeSource) Read(_ context.Context, path string) (audio.Metadata, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return readWAV(path)
	case ".aiff", ".aif":
		return readAIFF(path)
	case ".flac":
		return readFLAC(path)
	default:
		return audio.UnknownMetadata(), fmt.Errorf("no native metadata reader for %s", filepath.Ext(path))
	}
}

func readWAV(path string) (audio.Metadata, error) {
	meta := audio.UnknownMetadata()

	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return meta, fmt.Errorf("failed to read wav header: %w", err)
	}
	if !d.IsValidFile() {
		return meta, fmt.Errorf("invalid wav header")
	}

	meta.Format = "wav"
	meta.Codec = "pcm"
	meta.SampleRate = positiveOr(int(d.SampleRate))
	meta.BitDepth = positiveOr(int(d.BitDepth))
	if d.NumChans > 0 {
		meta.Channels = int(d.NumChans)
	}
	meta.BitrateKbps = audio.BitrateToKbps(int64(d.AvgBytesPerSec) * 8)
	if dur, err := d.Duration(); err == nil {
		meta.Duration = dur.Seconds()
	}
	return meta, nil
}

func readAIFF(path string) (audio.Metadata, error) {
	meta := audio.UnknownMetadata()

	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	d := aiff.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return meta, fmt.Errorf("failed to read aiff header: %w", err)
	}
	if !d.IsValidFile() {
		return meta, fmt.Errorf("invalid aiff header")
	}

	meta.Format = "aiff"
	meta.Codec = "pcm"
	meta.SampleRate = positiveOr(d.SampleRate)
	meta.BitDepth = positiveOr(int(d.BitDepth))
	if d.NumChans > 0 {
		meta.Channels = int(d.NumChans)
	}
	if meta.SampleRate > 0 && meta.BitDepth > 0 {
		meta.BitrateKbps = audio.BitrateToKbps(int64(meta.SampleRate) * int64(meta.BitDepth) * int64(meta.Channels))
	}
	if d.SampleRate > 0 {
		meta.Duration = float64(d.NumSampleFrames) / float64(d.SampleRate)
	}
	return meta, nil
}

func readFLAC(path string) (audio.Metadata, error) {
	meta := audio.UnknownMetadata()

	stream, err := flac.Open(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read flac stream info: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	meta.Format = "flac"
	meta.Codec = "flac"
	meta.SampleRate = positiveOr(int(info.SampleRate))
	meta.BitDepth = positiveOr(int(info.BitsPerSample))
	if info.NChannels > 0 {
		meta.Channels = int(info.NChannels)
	}
	if info.SampleRate > 0 && info.NSamples > 0 {
		meta.Duration = float64(info.NSamples) / float64(info.SampleRate)
	}

	// STREAMINFO carries no bitrate; report the average over the file
	if fi, err := os.Stat(path); err == nil && meta.Duration > 0 {
		meta.BitrateKbps = audio.BitrateToKbps(int64(float64(fi.Size()*8) / meta.Duration))
	}
	return meta, nil
}

func positiveOr(v int) int {
	if v <= 0 {
		return audio.Unknown
	}
	return v
}
