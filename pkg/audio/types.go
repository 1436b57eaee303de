// Package audio holds the values that flow through one spectrogram
// invocation: the fetched asset, its container metadata, decoded samples,
// the spectral matrix and the rendered image.
package audio

import (
	"fmt"
	"math"
	"strconv"
)

// Unknown marks an integer metadata field the container did not expose.
const Unknown = -1

// Asset is an audio file fetched into scoped local storage
type Asset struct {
	SourceURL string // Share link as supplied by the caller
	DirectURL string // Resolved direct-download URL
	LocalPath string // Path of the downloaded file
	Filename  string // Canonical filename derived from the share link
}

// Metadata represents container-level audio properties
type Metadata struct {
	SampleRate  int     `json:"sample_rate"`  // Hz, or Unknown
	BitDepth    int     `json:"bit_depth"`    // Bits per sample, or Unknown
	Channels    int     `json:"channels"`     // Channel count
	BitrateKbps int     `json:"bitrate_kbps"` // kbps, or Unknown
	Codec       string  `json:"codec,omitempty"`
	Format      string  `json:"format,omitempty"`
	Duration    float64 `json:"duration,omitempty"` // Seconds, 0 when unknown
}

// UnknownMetadata returns metadata with every optional field unknown
func UnknownMetadata() Metadata {
	return Metadata{
		SampleRate:  Unknown,
		BitDepth:    Unknown,
		Channels:    1,
		BitrateKbps: Unknown,
	}
}

// SampleRateString formats the sample rate for display
func (m Metadata) SampleRateString() string {
	return intOrUnknown(m.SampleRate)
}

// BitDepthString formats the bit depth for display
func (m Metadata) BitDepthString() string {
	return intOrUnknown(m.BitDepth)
}

// BitrateString formats the bitrate as "N kbps" or "Unknown bitrate"
func (m Metadata) BitrateString() string {
	if m.BitrateKbps == Unknown {
		return "Unknown bitrate"
	}
	return fmt.Sprintf("%d kbps", m.BitrateKbps)
}

// StreamLine is the second title line of a rendered spectrogram
func (m Metadata) StreamLine() string {
	channels := m.Channels
	if channels <= 0 {
		channels = 1
	}
	return fmt.Sprintf("Stream 1 / 1: PCM %s Hz, %s bits, channel %d, %s",
		m.SampleRateString(), m.BitDepthString(), channels, m.BitrateString())
}

// BitrateToKbps normalizes a bit/s value to kbps, mapping non-positive
// values to Unknown.
func BitrateToKbps(bps int64) int {
	if bps <= 0 {
		return Unknown
	}
	return int(bps / 1000)
}

func intOrUnknown(v int) string {
	if v == Unknown || v <= 0 {
		return "Unknown"
	}
	return strconv.Itoa(v)
}

// SampleBuffer is a decoded mono signal at the source's native rate
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds
func (b *SampleBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// SpectralMatrix is a decibel-scaled time-frequency matrix.
// MagnitudesDB is indexed [frequency][time].
type SpectralMatrix struct {
	Frequencies  []float64   // Hz, ascending from 0 to Nyquist
	Times        []float64   // Seconds, ascending from 0
	MagnitudesDB [][]float32 // [len(Frequencies)][len(Times)]
}

// Rows returns the number of frequency bins
func (m *SpectralMatrix) Rows() int {
	return len(m.Frequencies)
}

// Cols returns the number of time frames
func (m *SpectralMatrix) Cols() int {
	return len(m.Times)
}

// Nyquist returns the highest frequency on the axis
func (m *SpectralMatrix) Nyquist() float64 {
	if len(m.Frequencies) == 0 {
		return 0
	}
	return m.Frequencies[len(m.Frequencies)-1]
}

// Duration returns the time of the last frame
func (m *SpectralMatrix) Duration() float64 {
	if len(m.Times) == 0 {
		return 0
	}
	return m.Times[len(m.Times)-1]
}

// MinMax returns the smallest and largest decibel values
func (m *SpectralMatrix) MinMax() (float32, float32) {
	lo := float32(math.Inf(1))
	hi := float32(math.Inf(-1))
	for _, row := range m.MagnitudesDB {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Validate checks the shape and finiteness invariants
func (m *SpectralMatrix) Validate() error {
	if m == nil || m.Rows() == 0 || m.Cols() == 0 {
		return fmt.Errorf("spectral matrix is empty")
	}
	if len(m.MagnitudesDB) != m.Rows() {
		return fmt.Errorf("spectral matrix has %d rows, frequency axis has %d", len(m.MagnitudesDB), m.Rows())
	}
	for i, row := range m.MagnitudesDB {
		if len(row) != m.Cols() {
			return fmt.Errorf("spectral matrix row %d has %d columns, time axis has %d", i, len(row), m.Cols())
		}
		for j, v := range row {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("spectral matrix value at [%d][%d] is not finite", i, j)
			}
		}
	}
	return nil
}

// SpectrogramImage is the rendered PNG handed back to the caller
type SpectrogramImage struct {
	Bytes    []byte
	Filename string
}

// SpectrogramFilename returns the suggested output name for a source file
func SpectrogramFilename(original string) string {
	return original + "_spectrogram.png"
}
