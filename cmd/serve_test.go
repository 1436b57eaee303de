package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/killallgit/spectrogram-api/internal/database"
	"github.com/killallgit/spectrogram-api/internal/services/history"
	"github.com/killallgit/spectrogram-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantErr        bool
		expectedOutput string
	}{
		{
			name:           "serve command with help",
			args:           []string{"serve", "--help"},
			expectedOutput: "Start the Spectrogram API server",
		},
		{
			name:    "serve command with invalid port",
			args:    []string{"serve", "--port", "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.expectedOutput != "" && !strings.Contains(buf.String(), tt.expectedOutput) {
				t.Errorf("Expected output to contain %q, got %q", tt.expectedOutput, buf.String())
			}
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server:     config.ServerConfig{Host: "127.0.0.1", Port: 8080, ShutdownTimeout: time.Second},
		Database:   config.DatabaseConfig{Path: ":memory:"},
		Processing: config.ProcessingConfig{Workers: 1, MaxQueueSize: 2, FFmpegPath: "ffmpeg-missing", FFprobePath: "ffprobe-missing"},
		Storage:    config.StorageConfig{TempDir: t.TempDir(), MaxTempAge: time.Hour, CleanupInterval: time.Hour},
		Monitoring: config.MonitoringConfig{Enabled: true, MetricsPath: "/metrics"},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(cfg, "127.0.0.1:0")
	require.NoError(t, err)
	defer a.close()

	require.NotNil(t, a.db, "history is enabled by a database path")
	engine := a.server.Engine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":{"status":"healthy"}`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "spectrogram_pool_queue_depth")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// The pool has not been started, so submissions are refused
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/spectrograms?url=https://example.com/tone.wav", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "RESOURCE_EXHAUSTED")
}

func TestNewApp_WithoutHistoryOrMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = ""
	cfg.Monitoring.Enabled = false

	a, err := newApp(cfg, "127.0.0.1:0")
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.db)

	for _, path := range []string{"/metrics", "/api/v1/history"} {
		w := httptest.NewRecorder()
		a.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestNewApp_InvalidPipelineConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.WindowSize = 1023

	_, err := newApp(cfg, "127.0.0.1:0")
	assert.Error(t, err)
}

func TestNewApp_InvalidRenderConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render.Width = 300

	_, err := newApp(cfg, "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid render configuration")
}

func TestRecordHistory_SurvivesCancelledJobContext(t *testing.T) {
	db, err := database.InitializeWithMigrations(":memory:", false)
	require.NoError(t, err)
	defer db.Close()
	svc := history.NewService(history.NewRepository(db.DB))

	ctx, cancel := context.WithCancel(history.WithClientRequestID(context.Background(), "client-1"))
	cancel()

	hook := recordHistory(svc)
	hook(ctx, "srv-1", "https://example.com/tone.wav", nil, nil, time.Millisecond)
	hook(ctx, "srv-2", "https://example.com/tone.wav", nil, nil, time.Millisecond)

	for _, id := range []string{"srv-1", "srv-2"} {
		render, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "client-1", render.ClientRequestID)
	}
}
