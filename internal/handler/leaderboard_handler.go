package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classmate-app/homework-api/internal/service"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/response"
)

// LeaderboardHandler wires HTTP endpoints to the leaderboard service.
type LeaderboardHandler struct {
	service *service.LeaderboardService
}

// NewLeaderboardHandler creates a new handler.
func NewLeaderboardHandler(svc *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: svc}
}

// Class godoc
// @Summary Class leaderboard
// @Description Rank a class's members by points
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/leaderboard [get]
func (h *LeaderboardHandler) Class(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.Class(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Global godoc
// @Summary Global leaderboard
// @Description Rank the top scorers across all classes
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Global(c *gin.Context) {
	entries, err := h.service.Global(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export leaderboard
// @Description Download the class ranking as CSV or PDF
// @Tags Leaderboard
// @Produce json
// @Param id path string true "Class ID"
// @Param format query string true "Export format" Enums(csv, pdf)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/leaderboard/export [get]
func (h *LeaderboardHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.ExportClass(c.Request.Context(), c.Param("id"), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard_%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
