package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/killallgit/spectrogram-api/internal/services/decoder"
	"github.com/killallgit/spectrogram-api/internal/services/metadata"
	"github.com/killallgit/spectrogram-api/internal/services/render"
	"github.com/killallgit/spectrogram-api/internal/services/spectral"
	"github.com/killallgit/spectrogram-api/internal/services/validator"
	"github.com/killallgit/spectrogram-api/internal/testutil"
	"github.com/killallgit/spectrogram-api/pkg/audio"
	"github.com/killallgit/spectrogram-api/pkg/download"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/killallgit/spectrogram-api/pkg/share"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDependencies(t *testing.T, extensions []string) Dependencies {
	t.Helper()

	analyzer, err := spectral.New(spectral.DefaultConfig())
	require.NoError(t, err)

	return Dependencies{
		Resolver:  share.DefaultRegistry(),
		Validator: validator.New(extensions),
		Fetcher:   download.NewDownloader(download.DefaultOptions()),
		Metadata:  metadata.NewDefaultChain(nil),
		Decoder:   decoder.NewDefaultRegistry(),
		Analyzer:  analyzer,
		Renderer:  render.New(render.DefaultOptions()),
	}
}

// audioServer serves body for every request and counts hits
func audioServer(t *testing.T, status int, body []byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func assertNoResidue(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary storage must be released")
}

func TestGenerate_ToneWAV(t *testing.T) {
	tone := testutil.WAVBytes(t, testutil.Sine(440, 44100, 44100), 44100, 1)
	server, hits := audioServer(t, http.StatusOK, tone)
	tmp := t.TempDir()

	svc := NewService(testDependencies(t, nil), WithTempDir(tmp))
	img, err := svc.Generate(context.Background(), server.URL+"/s/abc123/tone.wav?dl=0")
	require.NoError(t, err)

	assert.Equal(t, "tone.wav_spectrogram.png", img.Filename)
	assert.Greater(t, len(img.Bytes), 0)
	_, err = png.Decode(bytes.NewReader(img.Bytes))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assertNoResidue(t, tmp)
}

func TestGenerateReport_Details(t *testing.T) {
	stereo := testutil.Interleave(testutil.Sine(1000, 22050, 11025), 2)
	server, _ := audioServer(t, http.StatusOK, testutil.WAVBytes(t, stereo, 22050, 2))

	observer := &recordingObserver{}
	svc := NewService(testDependencies(t, nil), WithTempDir(t.TempDir()), WithObserver(observer))

	result, err := svc.GenerateReport(context.Background(), server.URL+"/media/My%20Take.wav")
	require.NoError(t, err)

	assert.Equal(t, "My Take.wav", result.Asset.Filename)
	assert.Equal(t, "direct", result.Provider)
	assert.Equal(t, 22050, result.SampleRate)
	assert.InDelta(t, 0.5, result.Duration, 1e-9)
	assert.Equal(t, 2049, result.Rows)
	assert.Equal(t, 1+11025/512, result.Cols)
	assert.Equal(t, 2, result.Metadata.Channels)
	assert.Equal(t, 16, result.Metadata.BitDepth)
	assert.Equal(t, "My Take.wav_spectrogram.png", result.Image.Filename)
	assert.Greater(t, result.DownloadBytes, int64(0))

	for _, stage := range Stages {
		_, ok := result.Timings[stage]
		assert.True(t, ok, "missing timing for %s", stage)
	}
	assert.ElementsMatch(t, Stages, observer.stages())
}

func TestGenerate_UnsupportedFormatSkipsDownload(t *testing.T) {
	server, hits := audioServer(t, http.StatusOK, []byte("never fetched"))
	tmp := t.TempDir()

	svc := NewService(testDependencies(t, []string{".wav"}), WithTempDir(tmp))
	_, err := svc.Generate(context.Background(), server.URL+"/s/xyz/clip.aiff?dl=0")
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnsupportedFormat))
	assert.Equal(t, "unsupported file type. Supported: .wav", apperrors.UserMessage(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits), "validation runs before any transfer")
	assertNoResidue(t, tmp)
}

func TestGenerate_NotFound(t *testing.T) {
	server, _ := audioServer(t, http.StatusNotFound, []byte("missing"))
	tmp := t.TempDir()

	svc := NewService(testDependencies(t, nil), WithTempDir(tmp))
	_, err := svc.Generate(context.Background(), server.URL+"/gone.wav")
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDownload))
	assert.Contains(t, apperrors.UserMessage(err), "404")
	assertNoResidue(t, tmp)
}

func TestGenerate_DecodeFailure(t *testing.T) {
	server, _ := audioServer(t, http.StatusOK, []byte("this is not a riff file"))
	tmp := t.TempDir()

	svc := NewService(testDependencies(t, nil), WithTempDir(tmp))
	_, err := svc.Generate(context.Background(), server.URL+"/broken.wav")
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDecode))
	assertNoResidue(t, tmp)
}

func TestGenerate_RenderFailure(t *testing.T) {
	server, _ := audioServer(t, http.StatusOK, testutil.WAVBytes(t, testutil.Sine(440, 8000, 8000), 8000, 1))
	tmp := t.TempDir()

	deps := testDependencies(t, nil)
	deps.Renderer = failingRenderer{}
	_, err := NewService(deps, WithTempDir(tmp)).Generate(context.Background(), server.URL+"/tone.wav")
	require.Error(t, err)

	assert.True(t, apperrors.Is(err, apperrors.ErrCodeRender))
	assert.Equal(t, "failed to render spectrogram", apperrors.UserMessage(err))
	assertNoResidue(t, tmp)
}

func TestGenerate_InvalidLink(t *testing.T) {
	svc := NewService(testDependencies(t, nil), WithTempDir(t.TempDir()))

	for _, link := range []string{"", "ftp://example.com/a.wav", "https://example.com"} {
		_, err := svc.Generate(context.Background(), link)
		require.Error(t, err, link)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput), link)
	}
}

func TestGenerate_ExpiredContext(t *testing.T) {
	server, hits := audioServer(t, http.StatusOK, []byte("x"))
	svc := NewService(testDependencies(t, nil), WithTempDir(t.TempDir()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := svc.Generate(ctx, server.URL+"/tone.wav")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeAPITimeout))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestGenerate_UntaggedErrorsBecomeInternal(t *testing.T) {
	server, _ := audioServer(t, http.StatusOK, testutil.WAVBytes(t, make([]float64, 100), 8000, 1))

	deps := testDependencies(t, nil)
	deps.Analyzer = failingAnalyzer{}
	_, err := NewService(deps, WithTempDir(t.TempDir())).Generate(context.Background(), server.URL+"/tone.wav")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
}

func TestGenerate_Concurrent(t *testing.T) {
	server, _ := audioServer(t, http.StatusOK, testutil.WAVBytes(t, testutil.Sine(440, 8000, 4000), 8000, 1))
	tmp := t.TempDir()
	svc := NewService(testDependencies(t, nil), WithTempDir(tmp))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Generate(context.Background(), server.URL+"/tone.wav")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assertNoResidue(t, tmp)
}

type failingRenderer struct{}

func (failingRenderer) Render(*audio.SpectralMatrix, audio.Metadata, string) (*audio.SpectrogramImage, error) {
	return nil, apperrors.RenderError(errors.New("canvas exploded"))
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, *audio.SampleBuffer) (*audio.SpectralMatrix, error) {
	return nil, errors.New("fft plan failed")
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []Stage
}

func (o *recordingObserver) ObserveStage(stage Stage, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, stage)
}

func (o *recordingObserver) stages() []Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Stage(nil), o.seen...)
}
