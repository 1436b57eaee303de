package spectrograms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	"github.com/killallgit/spectrogram-api/pkg/audio"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSubmitter is a mock implementation of types.Submitter for testing
type mockSubmitter struct {
	result   *pipeline.Result
	err      error
	lastURL  string
	lastID   string
	requests int
}

func (m *mockSubmitter) Submit(ctx context.Context, requestID, shareURL string) (*pipeline.Result, error) {
	m.requests++
	m.lastID = requestID
	m.lastURL = shareURL
	return m.result, m.err
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func successResult() *pipeline.Result {
	return &pipeline.Result{
		Image:      &audio.SpectrogramImage{Bytes: pngBytes, Filename: "tone.wav_spectrogram.png"},
		SampleRate: 44100,
		Duration:   1,
	}
}

func setupRouter(sub types.Submitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(types.RequestIDKey, "req-123")
		c.Next()
	})
	deps := &types.Dependencies{}
	if sub != nil {
		deps.Spectrograms = sub
	}
	RegisterRoutes(router.Group("/api/v1/spectrograms"), deps)
	return router
}

func TestPost_Success(t *testing.T) {
	sub := &mockSubmitter{result: successResult()}
	router := setupRouter(sub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/spectrograms", strings.NewReader(`{"url":"https://www.dropbox.com/s/abc/tone.wav?dl=0"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="tone.wav_spectrogram.png"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "44100", w.Header().Get("X-Audio-Sample-Rate"))
	assert.Equal(t, pngBytes, w.Body.Bytes())
	assert.Equal(t, "https://www.dropbox.com/s/abc/tone.wav?dl=0", sub.lastURL)
	assert.Equal(t, "req-123", sub.lastID)
}

func TestGet_Success(t *testing.T) {
	sub := &mockSubmitter{result: successResult()}
	router := setupRouter(sub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/spectrograms?url=https%3A%2F%2Fexample.com%2Ftone.wav", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com/tone.wav", sub.lastURL)
}

func TestSpectrogram_Errors(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		err            error
		expectedStatus int
		expectedCode   string
		expectSubmit   bool
	}{
		{
			name:           "malformed body",
			method:         http.MethodPost,
			target:         "/api/v1/spectrograms",
			body:           `{"link":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "missing query parameter",
			method:         http.MethodGet,
			target:         "/api/v1/spectrograms",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "unsupported format",
			method:         http.MethodGet,
			target:         "/api/v1/spectrograms?url=https://example.com/clip.aiff",
			err:            apperrors.UnsupportedFormatError("clip.aiff", []string{".wav"}),
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedCode:   "UNSUPPORTED_FORMAT",
			expectSubmit:   true,
		},
		{
			name:           "download failure",
			method:         http.MethodPost,
			target:         "/api/v1/spectrograms",
			body:           `{"url":"https://example.com/missing.wav"}`,
			err:            apperrors.DownloadError(404, nil),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "DOWNLOAD",
			expectSubmit:   true,
		},
		{
			name:           "queue full",
			method:         http.MethodPost,
			target:         "/api/v1/spectrograms",
			body:           `{"url":"https://example.com/tone.wav"}`,
			err:            apperrors.ResourceExhausted("spectrogram queue"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "RESOURCE_EXHAUSTED",
			expectSubmit:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &mockSubmitter{err: tt.err}
			router := setupRouter(sub)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Equal(t, "req-123", resp.RequestID)
			if tt.expectSubmit {
				assert.Equal(t, 1, sub.requests)
			} else {
				assert.Zero(t, sub.requests)
			}
		})
	}
}

func TestSpectrogram_NoService(t *testing.T) {
	router := setupRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/spectrograms?url=https://example.com/tone.wav", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="My Take.wav_spectrogram.png"`, contentDisposition("My Take.wav_spectrogram.png"))
	assert.Contains(t, contentDisposition("tëst.wav_spectrogram.png"), "filename*=utf-8''")
}
