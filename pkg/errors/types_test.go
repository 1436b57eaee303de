package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     ErrorCode
		httpCode int
		contains string
	}{
		{
			name:     "download with status",
			err:      DownloadError(404, nil),
			code:     ErrCodeDownload,
			httpCode: http.StatusBadGateway,
			contains: "status 404",
		},
		{
			name:     "download transport fault",
			err:      DownloadError(0, stderrors.New("connection refused")),
			code:     ErrCodeDownload,
			httpCode: http.StatusBadGateway,
			contains: "connection refused",
		},
		{
			name:     "unsupported format",
			err:      UnsupportedFormatError("clip.aiff", []string{".wav", ".mp3"}),
			code:     ErrCodeUnsupportedFormat,
			httpCode: http.StatusUnsupportedMediaType,
			contains: ".mp3, .wav",
		},
		{
			name:     "decode",
			err:      DecodeError("no audio stream", nil),
			code:     ErrCodeDecode,
			httpCode: http.StatusUnprocessableEntity,
			contains: "no audio stream",
		},
		{
			name:     "render",
			err:      RenderError(stderrors.New("png: invalid format")),
			code:     ErrCodeRender,
			httpCode: http.StatusInternalServerError,
			contains: "render",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpCode, tt.err.GetHTTPCode())
			assert.Contains(t, tt.err.Message, tt.contains)
		})
	}
}

func TestIsThroughWrapping(t *testing.T) {
	base := DecodeError("bad header", nil)
	wrapped := fmt.Errorf("pipeline: %w", base)

	assert.True(t, Is(wrapped, ErrCodeDecode))
	assert.False(t, Is(wrapped, ErrCodeRender))
	assert.Equal(t, ErrCodeDecode, GetCode(wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPCode(wrapped))

	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(stderrors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "internal error", UserMessage(stderrors.New("secret path /tmp/x")))

	err := RenderError(stderrors.New("detailed cause"))
	assert.Equal(t, "failed to render spectrogram", UserMessage(err))
	assert.NotContains(t, UserMessage(err), "detailed cause")

	long := New(ErrCodeDownload, strings.Repeat("x", 500))
	msg := UserMessage(long)
	require.Len(t, []rune(msg), MaxUserMessageLength)
	assert.True(t, strings.HasSuffix(msg, "..."))
}

func TestWithDetail(t *testing.T) {
	err := NotFound("render", "abc").WithDetail("extra", 1)
	assert.Equal(t, "render", err.Details["resource"])
	assert.Equal(t, "abc", err.Details["id"])
	assert.Equal(t, 1, err.Details["extra"])
	assert.Equal(t, http.StatusNotFound, err.GetHTTPCode())
}
