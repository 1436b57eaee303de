package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
)

// Get handles version requests
// @Summary      Service version
// @Tags         version
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /version [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	v := "dev"
	if deps != nil && deps.Version != "" {
		v = deps.Version
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Spectrogram API",
			"version":     v,
			"description": "Renders spectrogram images from shared audio links",
			"status":      "running",
		})
	}
}
