// Package testutil writes synthetic audio fixtures for tests.
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// Sine returns n samples of a unit-amplitude sine at freq Hz
func Sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

// Interleave repeats a mono signal across channels
func Interleave(mono []float64, channels int) []float64 {
	out := make([]float64, 0, len(mono)*channels)
	for _, v := range mono {
		for c := 0; c < channels; c++ {
			out = append(out, v)
		}
	}
	return out
}

// WAVBytes encodes interleaved samples in [-1, 1] as 16-bit PCM WAV and
// returns the file contents
func WAVBytes(t *testing.T, samples []float64, sampleRate, channels int) []byte {
	t.Helper()

	path := WriteWAV(t, t.TempDir(), "fixture.wav", samples, sampleRate, channels)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return data
}

// WriteWAV encodes interleaved samples in [-1, 1] as 16-bit PCM WAV at
// dir/name
func WriteWAV(t *testing.T, dir, name string, samples []float64, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, 16, channels, 1)
	if err := enc.Write(intBuffer(samples, sampleRate, channels)); err != nil {
		t.Fatalf("Failed to encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close wav encoder: %v", err)
	}
	return path
}

// WriteAIFF encodes interleaved samples in [-1, 1] as 16-bit AIFF at
// dir/name
func WriteAIFF(t *testing.T, dir, name string, samples []float64, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer out.Close()

	enc := aiff.NewEncoder(out, sampleRate, 16, channels)
	if err := enc.Write(intBuffer(samples, sampleRate, channels)); err != nil {
		t.Fatalf("Failed to encode aiff: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close aiff encoder: %v", err)
	}
	return path
}

// flacBlockSize is the number of frames per channel in each encoded FLAC frame
const flacBlockSize = 4096

// WriteFLAC encodes interleaved samples in [-1, 1] as 16-bit FLAC with
// verbatim subframes at dir/name. Mono and stereo are supported.
func WriteFLAC(t *testing.T, dir, name string, samples []float64, sampleRate, channels int) string {
	t.Helper()

	var assignment frame.Channels
	switch channels {
	case 1:
		assignment = frame.ChannelsMono
	case 2:
		assignment = frame.ChannelsLR
	default:
		t.Fatalf("WriteFLAC supports 1 or 2 channels, got %d", channels)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  65535,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(channels),
		BitsPerSample: 16,
	}
	// Close updates STREAMINFO through Seek and closes out
	enc, err := flac.NewEncoder(out, info)
	if err != nil {
		out.Close()
		t.Fatalf("Failed to create flac encoder: %v", err)
	}

	frames := len(samples) / channels
	for start := 0; start < frames; start += flacBlockSize {
		n := min(flacBlockSize, frames-start)
		subframes := make([]*frame.Subframe, channels)
		for c := range subframes {
			data := make([]int32, n)
			for i := range data {
				data[i] = int32(math.Round(samples[(start+i)*channels+c] * 32767))
			}
			subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   data,
				NSamples:  n,
			}
		}

		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          assignment,
				BitsPerSample:     16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			t.Fatalf("Failed to encode flac frame: %v", err)
		}
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close flac encoder: %v", err)
	}
	return path
}

// WriteFLACHeader writes a FLAC signature and a lone STREAMINFO block that
// declares nsamples frames per channel but carries no audio.
func WriteFLACHeader(t *testing.T, dir, name string, sampleRate, channels, bitsPerSample int, nsamples uint64) string {
	t.Helper()

	data := make([]byte, 0, 42)
	data = append(data, "fLaC"...)
	// Last-block flag with type 0 (STREAMINFO), then a 24-bit length of 34
	data = append(data, 0x80, 0x00, 0x00, 34)

	block := make([]byte, 34)
	binary.BigEndian.PutUint16(block[0:], flacBlockSize)
	binary.BigEndian.PutUint16(block[2:], flacBlockSize)
	// Bytes 4-9 are the unknown (zero) min and max frame sizes
	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitsPerSample-1)<<36 |
		(nsamples & (1<<36 - 1))
	binary.BigEndian.PutUint64(block[10:], packed)
	// Bytes 18-33 are the MD5 signature, left zero
	data = append(data, block...)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func intBuffer(samples []float64, sampleRate, channels int) *audio.IntBuffer {
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(v * 32767))
	}
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
}
