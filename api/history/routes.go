package history

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
)

// RegisterRoutes registers render history routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.GET("/:id", GetByID(deps))
}
