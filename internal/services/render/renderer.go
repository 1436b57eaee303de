// Package render draws spectral matrices as annotated PNG spectrograms.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/mazznoer/colorgrad"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
)

// Options controls the canvas
type Options struct {
	Width        int     // Canvas width in pixels
	Height       int     // Canvas height in pixels
	FreqTickStep float64 // Hz between frequency ticks
	TextScale    int     // Integer upscaling of the 7x13 bitmap font
}

// DefaultOptions returns a 1500x750 canvas with ticks every 2 kHz
func DefaultOptions() Options {
	return Options{
		Width:        1500,
		Height:       750,
		FreqTickStep: 2000,
		TextScale:    2,
	}
}

const (
	marginLeft    = 160
	marginRight   = 200
	marginTop     = 90
	marginBottom  = 80
	tickLength    = 6
	colorbarGap   = 30
	colorbarWidth = 28
)

var (
	background = color.RGBA{A: 255}
	foreground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Renderer draws spectrograms. It holds no per-call state and is safe for
// concurrent use.
type Renderer struct {
	opts    Options
	palette [256]color.RGBA
}

// New creates a renderer. Zero fields in opts take their defaults.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.FreqTickStep <= 0 {
		opts.FreqTickStep = def.FreqTickStep
	}
	if opts.TextScale <= 0 {
		opts.TextScale = def.TextScale
	}

	r := &Renderer{opts: opts}
	grad := colorgrad.Plasma()
	for i := range r.palette {
		r.palette[i] = color.RGBAModel.Convert(grad.At(float64(i) / 255)).(color.RGBA)
	}
	return r
}

// Options returns the renderer's canvas options
func (r *Renderer) Options() Options {
	return r.opts
}

// layout is the pixel geometry of one canvas
type layout struct {
	plot     image.Rectangle
	colorbar image.Rectangle
}

// widestDecibelLabel sizes the colorbar tick labels when checking the layout
const widestDecibelLabel = "-120 dB"

// minPlotSize is the smallest plot area, in pixels per side
const minPlotSize = 10

// layout fails for canvases whose plot area or colorbar labels would not
// fit. The sizes are checked before building rectangles because
// image.Rect swaps inverted corners.
func (r *Renderer) layout() (layout, error) {
	plotWidth := r.opts.Width - marginLeft - marginRight
	plotHeight := r.opts.Height - marginTop - marginBottom
	if plotWidth < minPlotSize || plotHeight < minPlotSize {
		return layout{}, fmt.Errorf("canvas %dx%d is too small", r.opts.Width, r.opts.Height)
	}

	plot := image.Rect(marginLeft, marginTop, marginLeft+plotWidth, marginTop+plotHeight)
	cb := image.Rect(plot.Max.X+colorbarGap, plot.Min.Y, plot.Max.X+colorbarGap+colorbarWidth, plot.Max.Y)

	scale := r.opts.TextScale
	labelRight := cb.Max.X + tickLength + 4 + font.MeasureString(face, widestDecibelLabel).Ceil()*scale
	// The rotated axis title hugs the right edge
	axisTitle := textHeight()*scale + 6
	if labelRight+axisTitle > r.opts.Width {
		return layout{}, fmt.Errorf("colorbar labels do not fit a %d px wide canvas at text scale %d", r.opts.Width, scale)
	}

	return layout{plot: plot, colorbar: cb}, nil
}

// Validate reports whether the configured canvas can hold the plot,
// axes and colorbar
func (r *Renderer) Validate() error {
	_, err := r.layout()
	return err
}

// Render draws the matrix with axes, colorbar and a two-line title block
// (the title and the metadata stream line), then encodes it as PNG
func (r *Renderer) Render(m *audio.SpectralMatrix, meta audio.Metadata, title string) (img *audio.SpectrogramImage, err error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "Render",
		"title":    title,
	})

	defer func() {
		if p := recover(); p != nil {
			logger.WithField("panic", p).Error("Renderer panicked")
			img, err = nil, apperrors.RenderError(fmt.Errorf("panic while drawing: %v", p))
		}
	}()

	if err := m.Validate(); err != nil {
		return nil, apperrors.RenderError(err)
	}

	lay, err := r.layout()
	if err != nil {
		return nil, apperrors.RenderError(err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	lo, hi := m.MinMax()
	vmin, vmax := float64(lo), float64(hi)
	if vmax-vmin < 1e-6 {
		vmin = vmax - 1
	}

	r.drawMatrix(canvas, lay.plot, m, vmin, vmax)
	r.drawFrequencyAxis(canvas, lay.plot, m.Nyquist())
	r.drawTimeAxis(canvas, lay.plot, m.Duration())
	r.drawColorbar(canvas, lay.colorbar, vmin, vmax)
	r.drawTitle(canvas, title, meta.StreamLine())

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, apperrors.RenderError(err)
	}

	logger.WithFields(logrus.Fields{
		"bytes": buf.Len(),
		"rows":  m.Rows(),
		"cols":  m.Cols(),
	}).Debug("Rendered spectrogram")

	return &audio.SpectrogramImage{
		Bytes:    buf.Bytes(),
		Filename: audio.SpectrogramFilename(title),
	}, nil
}

// colorFor maps a decibel value into the palette
func (r *Renderer) colorFor(v, vmin, vmax float64) color.RGBA {
	t := (v - vmin) / (vmax - vmin)
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return r.palette[int(math.Round(t*255))]
}

// drawMatrix max-pools matrix cells into plot pixels. Row 0 (0 Hz) is at
// the bottom.
func (r *Renderer) drawMatrix(dst *image.RGBA, plot image.Rectangle, m *audio.SpectralMatrix, vmin, vmax float64) {
	rows, cols := m.Rows(), m.Cols()
	pw, ph := plot.Dx(), plot.Dy()

	for px := 0; px < pw; px++ {
		c0 := px * cols / pw
		c1 := (px + 1) * cols / pw
		if c1 <= c0 {
			c1 = c0 + 1
		}

		for py := 0; py < ph; py++ {
			// Pixel rows from the bottom edge
			b := ph - 1 - py
			r0 := b * rows / ph
			r1 := (b + 1) * rows / ph
			if r1 <= r0 {
				r1 = r0 + 1
			}

			best := float32(math.Inf(-1))
			for k := r0; k < r1; k++ {
				row := m.MagnitudesDB[k]
				for j := c0; j < c1; j++ {
					if row[j] > best {
						best = row[j]
					}
				}
			}
			dst.SetRGBA(plot.Min.X+px, plot.Min.Y+py, r.colorFor(float64(best), vmin, vmax))
		}
	}

	drawBorder(dst, plot)
}

func (r *Renderer) drawFrequencyAxis(dst *image.RGBA, plot image.Rectangle, nyquist float64) {
	if nyquist > 0 {
		for _, tick := range FrequencyTicks(nyquist, r.opts.FreqTickStep) {
			y := plot.Max.Y - 1 - int(math.Round(tick.Value/nyquist*float64(plot.Dy()-1)))
			hline(dst, plot.Min.X-tickLength, plot.Min.X, y)
			r.drawText(dst, tick.Label, plot.Min.X-tickLength-6, y, anchorRight|anchorMiddle, false)
		}
	}

	r.drawText(dst, "Frequency (Hz)", 16, (plot.Min.Y+plot.Max.Y)/2, anchorLeft|anchorMiddle, true)
}

func (r *Renderer) drawTimeAxis(dst *image.RGBA, plot image.Rectangle, duration float64) {
	for _, tick := range TimeTicks(duration, 10) {
		x := plot.Min.X
		if duration > 0 {
			x += int(math.Round(tick.Value / duration * float64(plot.Dx()-1)))
		}
		vline(dst, x, plot.Max.Y, plot.Max.Y+tickLength)
		r.drawText(dst, tick.Label, x, plot.Max.Y+tickLength+4, anchorCenter|anchorTop, false)
	}

	r.drawText(dst, "Time (s)", (plot.Min.X+plot.Max.X)/2, r.opts.Height-8, anchorCenter|anchorBottom, false)
}

func (r *Renderer) drawColorbar(dst *image.RGBA, cb image.Rectangle, vmin, vmax float64) {
	h := cb.Dy()
	for y := 0; y < h; y++ {
		v := vmax - (vmax-vmin)*float64(y)/float64(h-1)
		c := r.colorFor(v, vmin, vmax)
		for x := cb.Min.X; x < cb.Max.X; x++ {
			dst.SetRGBA(x, cb.Min.Y+y, c)
		}
	}
	drawBorder(dst, cb)

	for _, tick := range DecibelTicks(vmin, vmax, 8) {
		y := cb.Min.Y + int(math.Round((vmax-tick.Value)/(vmax-vmin)*float64(h-1)))
		hline(dst, cb.Max.X, cb.Max.X+tickLength, y)
		r.drawText(dst, tick.Label, cb.Max.X+tickLength+4, y, anchorLeft|anchorMiddle, false)
	}

	r.drawText(dst, "Amplitude (dB)", r.opts.Width-6, (cb.Min.Y+cb.Max.Y)/2, anchorRight|anchorMiddle, true)
}

func (r *Renderer) drawTitle(dst *image.RGBA, title, stream string) {
	center := r.opts.Width / 2
	line := textHeight() * r.opts.TextScale
	r.drawText(dst, title, center, 12, anchorCenter|anchorTop, false)
	r.drawText(dst, stream, center, 12+line+6, anchorCenter|anchorTop, false)
}
