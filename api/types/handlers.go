package types

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
)

// Gin context keys set by the request ID middleware
const (
	RequestIDKey       = "request_id"
	ClientRequestIDKey = "client_request_id"
)

// RequestID returns the ID assigned by the request ID middleware
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// SendError writes err as a JSON error with its mapped HTTP status
func SendError(c *gin.Context, err error) {
	c.JSON(apperrors.GetHTTPCode(err), ErrorResponse{
		Status:    StatusError,
		Code:      string(apperrors.GetCode(err)),
		Message:   apperrors.UserMessage(err),
		RequestID: RequestID(c),
	})
}

// QueryInt parses a non-negative integer query parameter, returning def
// when it is absent
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.InvalidInput(name, "must be a non-negative integer")
	}
	return v, nil
}
