package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classmate-app/homework-api/internal/models"
	"github.com/classmate-app/homework-api/internal/service"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/response"
)

// HomeworkHandler wires HTTP endpoints to the homework and completion
// services.
type HomeworkHandler struct {
	service     *service.HomeworkService
	completions *service.CompletionService
}

// NewHomeworkHandler creates a new handler.
func NewHomeworkHandler(svc *service.HomeworkService, completions *service.CompletionService) *HomeworkHandler {
	return &HomeworkHandler{service: svc, completions: completions}
}

// Create godoc
// @Summary Post homework
// @Description Add an assignment to a class
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.CreateHomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}

	hw, err := h.service.Create(c.Request.Context(), c.Param("id"), claims.UserID, claims.DisplayName, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, hw, nil)
}

// List godoc
// @Summary List homework
// @Description List a class's assignments through one of the derived views
// @Tags Homework
// @Produce json
// @Param id path string true "Class ID"
// @Param view query string false "View filter" Enums(all, pending, urgent, completed)
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view := models.HomeworkView(c.DefaultQuery("view", string(models.ViewAll)))
	items, err := h.service.List(c.Request.Context(), c.Param("id"), claims.UserID, view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Homework detail
// @Description Return one assignment
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	hw, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hw, nil)
}

// Complete godoc
// @Summary Mark homework complete
// @Description Record completion and award a point; requires attached proof
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/complete [post]
func (h *HomeworkHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.completions.MarkComplete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"completed": true}, nil)
}

// Completed godoc
// @Summary My completions
// @Description List the IDs of everything the caller completed
// @Tags Homework
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/completions [get]
func (h *HomeworkHandler) Completed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ids, err := h.completions.CompletedIDs(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

// Calendar godoc
// @Summary Deadline calendar
// @Description Aggregate homework deadlines per day for one month
// @Tags Homework
// @Produce json
// @Param id path string true "Class ID"
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/calendar [get]
func (h *HomeworkHandler) Calendar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	now := time.Now().UTC()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12"))
		return
	}

	counts, err := h.service.Calendar(c.Request.Context(), c.Param("id"), claims.UserID, year, time.Month(month))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
