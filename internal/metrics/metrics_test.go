package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "download", Outcome(apperrors.DownloadError(404, nil)))
	assert.Equal(t, "unsupported_format", Outcome(apperrors.UnsupportedFormatError("a.txt", []string{".wav"})))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
}

func TestCollector(t *testing.T) {
	depth := 3
	c := NewCollector(func() int { return depth })

	c.RecordOutcome(nil)
	c.RecordOutcome(nil)
	c.RecordOutcome(apperrors.DecodeError("bad", nil))
	c.ObserveStage(pipeline.StageAnalyze, 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("decode")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.queueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stageDuration))
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.RecordOutcome(nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `spectrogram_requests_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "spectrogram_pool_queue_depth 0")
}
