package history

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/spectrogram-api/api/types"
	historyService "github.com/killallgit/spectrogram-api/internal/services/history"
)

// List returns recorded renders, newest first
// @Summary      List render history
// @Tags         history
// @Produce      json
// @Param        limit  query int false "Page size (max 100)" default(20)
// @Param        offset query int false "Entries to skip" default(0)
// @Success      200 {object} types.RenderListResponse
// @Failure      400 {object} types.ErrorResponse "Invalid paging parameters"
// @Failure      500 {object} types.ErrorResponse "Database error"
// @Router       /api/v1/history [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := types.QueryInt(c, "limit", historyService.DefaultListLimit)
		if err != nil {
			types.SendError(c, err)
			return
		}
		offset, err := types.QueryInt(c, "offset", 0)
		if err != nil {
			types.SendError(c, err)
			return
		}

		renders, total, err := deps.History.List(c.Request.Context(), limit, offset)
		if err != nil {
			types.SendError(c, err)
			return
		}

		resp := types.RenderListResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Renders:      make([]types.Render, 0, len(renders)),
			Total:        total,
			Limit:        pageSize(limit),
			Offset:       offset,
		}
		for i := range renders {
			resp.Renders = append(resp.Renders, types.NewRender(&renders[i]))
		}
		resp.Count = len(resp.Renders)

		c.JSON(http.StatusOK, resp)
	}
}

// GetByID returns one render by request ID
// @Summary      Get a render
// @Tags         history
// @Produce      json
// @Param        id path string true "Request ID"
// @Success      200 {object} types.RenderResponse
// @Failure      404 {object} types.ErrorResponse "Render not found"
// @Router       /api/v1/history/{id} [get]
func GetByID(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		render, err := deps.History.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.RenderResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Render:       types.NewRender(render),
		})
	}
}

// pageSize mirrors the clamping the history service applies
func pageSize(limit int) int {
	if limit <= 0 {
		return historyService.DefaultListLimit
	}
	return min(limit, historyService.MaxListLimit)
}
