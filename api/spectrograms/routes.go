package spectrograms

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
)

// RegisterRoutes registers spectrogram routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Post(deps))
	router.GET("", Get(deps))
}
