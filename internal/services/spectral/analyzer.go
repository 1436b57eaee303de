// Package spectral computes decibel-scaled short-time Fourier transforms.
package spectral

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Mode selects how magnitudes are converted to decibels
type Mode string

const (
	// ModePeak references every value to the loudest bin, so the maximum
	// is 0 dB and everything else is negative
	ModePeak Mode = "peak"
	// ModeFloor reports absolute levels, 20*log10(|X| + epsilon)
	ModeFloor Mode = "floor"
)

// ParseMode converts a config string into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePeak, "":
		return ModePeak, nil
	case ModeFloor:
		return ModeFloor, nil
	default:
		return "", fmt.Errorf("unknown decibel mode %q (want %q or %q)", s, ModePeak, ModeFloor)
	}
}

// Config holds the analysis parameters
type Config struct {
	WindowSize int     // FFT length in samples
	HopSize    int     // Offset between frames in samples
	Mode       Mode    // Decibel reference
	Epsilon    float64 // Additive floor inside the log
	TopDB      float64 // Peak mode clips below -TopDB; 0 disables
}

// DefaultConfig returns a 4096-sample window with a 512-sample hop
func DefaultConfig() Config {
	return Config{
		WindowSize: 4096,
		HopSize:    512,
		Mode:       ModePeak,
		Epsilon:    1e-6,
		TopDB:      80,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.WindowSize < 2 || c.WindowSize%2 != 0 {
		return fmt.Errorf("window size must be an even number >= 2, got %d", c.WindowSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("hop size must be positive, got %d", c.HopSize)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	if c.TopDB < 0 {
		return fmt.Errorf("top_db must not be negative, got %g", c.TopDB)
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// Analyzer turns sample buffers into spectral matrices. It is safe for
// concurrent use; FFT plans are created per call.
type Analyzer struct {
	cfg    Config
	window []float64
}

// New creates an analyzer
func New(cfg Config) (*Analyzer, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModePeak
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg, window: periodicHann(cfg.WindowSize)}, nil
}

// Config returns the analyzer's parameters
func (a *Analyzer) Config() Config {
	return a.cfg
}

// checkEvery is how many frames are computed between context checks
const checkEvery = 64

// Analyze computes the STFT of buf. Frames are centered: the signal is
// padded with WindowSize/2 zeros on both sides, so frame j is centered on
// sample j*HopSize and there are 1+len/HopSize frames.
func (a *Analyzer) Analyze(ctx context.Context, buf *audio.SampleBuffer) (*audio.SpectralMatrix, error) {
	if buf == nil || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("sample buffer has no sample rate")
	}
	if len(buf.Samples) == 0 {
		return nil, fmt.Errorf("sample buffer is empty")
	}

	n := a.cfg.WindowSize
	hop := a.cfg.HopSize
	half := n / 2
	bins := half + 1
	frames := 1 + len(buf.Samples)/hop

	padded := make([]float64, len(buf.Samples)+n)
	copy(padded[half:], buf.Samples)

	magnitudes := make([][]float32, bins)
	for k := range magnitudes {
		magnitudes[k] = make([]float32, frames)
	}

	fft := fourier.NewFFT(n)
	frame := make([]float64, n)
	coeffs := make([]complex128, bins)
	peak := 0.0

	for j := 0; j < frames; j++ {
		if j%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		start := j * hop
		for i := 0; i < n; i++ {
			frame[i] = padded[start+i] * a.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		for k, c := range coeffs {
			mag := math.Hypot(real(c), imag(c))
			if mag > peak {
				peak = mag
			}
			magnitudes[k][j] = float32(mag)
		}
	}

	a.toDecibels(magnitudes, peak)

	times := make([]float64, frames)
	for j := range times {
		times[j] = float64(j*hop) / float64(buf.SampleRate)
	}
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(buf.SampleRate) / float64(n)
	}

	return &audio.SpectralMatrix{
		Frequencies:  freqs,
		Times:        times,
		MagnitudesDB: magnitudes,
	}, nil
}

// toDecibels converts magnitudes in place
func (a *Analyzer) toDecibels(m [][]float32, peak float64) {
	eps := a.cfg.Epsilon
	ref := 0.0
	floor := math.Inf(-1)
	if a.cfg.Mode == ModePeak {
		ref = 20 * math.Log10(peak+eps)
		if a.cfg.TopDB > 0 {
			floor = -a.cfg.TopDB
		}
	}

	for _, row := range m {
		for j, mag := range row {
			db := 20*math.Log10(float64(mag)+eps) - ref
			if db < floor {
				db = floor
			}
			row[j] = float32(db)
		}
	}
}

// periodicHann returns the n-point periodic Hann window, the first n
// points of an n+1 point symmetric window
func periodicHann(n int) []float64 {
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[:n]
}
