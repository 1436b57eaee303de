package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/killallgit/spectrogram-api/pkg/audio"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatrix(rows, cols int) *audio.SpectralMatrix {
	m := &audio.SpectralMatrix{
		Frequencies:  make([]float64, rows),
		Times:        make([]float64, cols),
		MagnitudesDB: make([][]float32, rows),
	}
	for k := range m.Frequencies {
		m.Frequencies[k] = float64(k) * 22050 / float64(rows-1)
		m.MagnitudesDB[k] = make([]float32, cols)
		for j := range m.MagnitudesDB[k] {
			m.MagnitudesDB[k][j] = -80 * float32(k) / float32(rows)
		}
	}
	for j := range m.Times {
		m.Times[j] = float64(j) * 512 / 44100
	}
	return m
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRender_ProducesPNG(t *testing.T) {
	r := New(DefaultOptions())
	meta := audio.Metadata{SampleRate: 44100, BitDepth: 16, Channels: 1, BitrateKbps: 705}

	out, err := r.Render(testMatrix(2049, 87), meta, "tone.wav")
	require.NoError(t, err)

	assert.Equal(t, "tone.wav_spectrogram.png", out.Filename)
	require.NotEmpty(t, out.Bytes)

	img := decode(t, out.Bytes)
	assert.Equal(t, image.Rect(0, 0, 1500, 750), img.Bounds())

	// Corners are background
	assert.Equal(t, color.RGBA{A: 255}, color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.RGBA{A: 255}, color.RGBAModel.Convert(img.At(1499, 749)))

	// Plot pixels come from the colormap and are never pure black
	inside := color.RGBAModel.Convert(img.At(marginLeft+100, 750-marginBottom-5)).(color.RGBA)
	assert.NotEqual(t, color.RGBA{A: 255}, inside)
}

func TestRender_LowFrequencyIsBrighterAtBottom(t *testing.T) {
	r := New(DefaultOptions())
	out, err := r.Render(testMatrix(512, 40), audio.UnknownMetadata(), "ramp.wav")
	require.NoError(t, err)

	img := decode(t, out.Bytes)
	top := color.RGBAModel.Convert(img.At(marginLeft+50, marginTop+2)).(color.RGBA)
	bottom := color.RGBAModel.Convert(img.At(marginLeft+50, 750-marginBottom-2)).(color.RGBA)

	// Plasma runs from dark purple to bright yellow
	assert.Greater(t, int(bottom.G), int(top.G))
}

func TestRender_FlatMatrix(t *testing.T) {
	m := &audio.SpectralMatrix{
		Frequencies:  []float64{0, 4000},
		Times:        []float64{0, 0.1},
		MagnitudesDB: [][]float32{{0, 0}, {0, 0}},
	}

	out, err := New(DefaultOptions()).Render(m, audio.UnknownMetadata(), "silence.wav")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Bytes)
}

func TestRender_InvalidMatrix(t *testing.T) {
	r := New(DefaultOptions())

	_, err := r.Render(&audio.SpectralMatrix{}, audio.UnknownMetadata(), "x.wav")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeRender))
	assert.Equal(t, "failed to render spectrogram", apperrors.UserMessage(err))

	ragged := &audio.SpectralMatrix{
		Frequencies:  []float64{0, 1},
		Times:        []float64{0},
		MagnitudesDB: [][]float32{{0}},
	}
	_, err = r.Render(ragged, audio.UnknownMetadata(), "x.wav")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeRender))
}

func TestRender_CanvasTooSmall(t *testing.T) {
	r := New(Options{Width: 300, Height: 100})
	img, err := r.Render(testMatrix(4, 4), audio.UnknownMetadata(), "x.wav")
	require.Error(t, err)
	assert.Nil(t, img)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeRender))
}

func TestRendererValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "defaults", opts: DefaultOptions()},
		{name: "smallest plot", opts: Options{Width: 370, Height: 180}},
		// Width and height below the margins would invert the plot corners
		{name: "narrower than margins", opts: Options{Width: 300, Height: 750}, wantErr: "too small"},
		{name: "shorter than margins", opts: Options{Width: 1500, Height: 100}, wantErr: "too small"},
		{name: "plot one pixel short", opts: Options{Width: 369, Height: 750}, wantErr: "too small"},
		{name: "colorbar labels overflow", opts: Options{Width: 370, Height: 180, TextScale: 4}, wantErr: "colorbar labels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.opts).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRender_LayoutStaysOnCanvas(t *testing.T) {
	r := New(Options{Width: 370, Height: 180})
	lay, err := r.layout()
	require.NoError(t, err)

	canvas := image.Rect(0, 0, 370, 180)
	assert.True(t, lay.plot.In(canvas))
	assert.True(t, lay.colorbar.In(canvas))
	assert.Equal(t, marginLeft, lay.plot.Min.X)
	assert.Equal(t, marginTop, lay.plot.Min.Y)
	assert.Greater(t, lay.colorbar.Min.X, lay.plot.Max.X)
}

func TestNewAppliesDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), New(Options{}).Options())

	custom := New(Options{Width: 800, Height: 400, FreqTickStep: 1000, TextScale: 1}).Options()
	assert.Equal(t, 800, custom.Width)
	assert.Equal(t, 1000.0, custom.FreqTickStep)
}

func TestRotateCCW(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(2, 0, foreground)

	dst := rotateCCW(src)
	assert.Equal(t, image.Rect(0, 0, 2, 3), dst.Bounds())
	// Top-right corner moves to the top-left
	assert.Equal(t, foreground, dst.RGBAAt(0, 0))
}
