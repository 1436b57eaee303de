package spectrograms

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Post renders the spectrogram for the link in the JSON body
// @Summary      Render a spectrogram
// @Description  Download the audio behind a share link and return its spectrogram as a PNG
// @Tags         spectrograms
// @Accept       json
// @Produce      png
// @Produce      json
// @Param        request body types.SpectrogramRequest true "Share link"
// @Success      200 {file} binary "Spectrogram image"
// @Failure      400 {object} types.ErrorResponse "Invalid link"
// @Failure      415 {object} types.ErrorResponse "Unsupported file type"
// @Failure      422 {object} types.ErrorResponse "Audio could not be decoded"
// @Failure      502 {object} types.ErrorResponse "Download failed"
// @Failure      503 {object} types.ErrorResponse "Queue full"
// @Failure      504 {object} types.ErrorResponse "Timed out"
// @Router       /api/v1/spectrograms [post]
func Post(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SpectrogramRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			types.SendError(c, apperrors.InvalidInput("url", "request body must be JSON with a url field"))
			return
		}
		render(c, deps, req.URL)
	}
}

// Get renders the spectrogram for the url query parameter
// @Summary      Render a spectrogram
// @Description  Same as POST with the share link passed as a query parameter
// @Tags         spectrograms
// @Produce      png
// @Produce      json
// @Param        url query string true "Share link"
// @Success      200 {file} binary "Spectrogram image"
// @Failure      400 {object} types.ErrorResponse "Invalid link"
// @Failure      415 {object} types.ErrorResponse "Unsupported file type"
// @Failure      502 {object} types.ErrorResponse "Download failed"
// @Router       /api/v1/spectrograms [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		link := c.Query("url")
		if link == "" {
			types.SendError(c, apperrors.InvalidInput("url", "query parameter is required"))
			return
		}
		render(c, deps, link)
	}
}

func render(c *gin.Context, deps *types.Dependencies, link string) {
	requestID := types.RequestID(c)
	logger := logrus.WithFields(logrus.Fields{
		"function":   "spectrograms.render",
		"request_id": requestID,
	})

	if deps == nil || deps.Spectrograms == nil {
		types.SendError(c, apperrors.New(apperrors.ErrCodeInternal, "spectrogram service not available"))
		return
	}

	result, err := deps.Spectrograms.Submit(c.Request.Context(), requestID, link)
	if err != nil {
		logger.WithField("code", apperrors.GetCode(err)).Debug("Spectrogram request failed")
		types.SendError(c, err)
		return
	}

	img := result.Image
	c.Header("Content-Disposition", contentDisposition(img.Filename))
	c.Header("X-Audio-Sample-Rate", strconv.Itoa(result.SampleRate))
	c.Header("X-Audio-Duration", fmt.Sprintf("%.3f", result.Duration))
	c.Data(http.StatusOK, "image/png", img.Bytes)
}

// contentDisposition quotes plain ASCII names and falls back to RFC 2231
// encoding for anything else
func contentDisposition(filename string) string {
	plain := strings.IndexFunc(filename, func(r rune) bool {
		return r < 0x20 || r > 0x7e || r == '"' || r == '\\'
	}) < 0
	if plain {
		return `attachment; filename="` + filename + `"`
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
