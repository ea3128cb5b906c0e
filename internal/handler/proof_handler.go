package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classmate-app/homework-api/internal/service"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
	"github.com/classmate-app/homework-api/pkg/response"
)

// ProofHandler wires HTTP endpoints to the proof service.
type ProofHandler struct {
	service *service.ProofService
}

// NewProofHandler creates a new handler.
func NewProofHandler(svc *service.ProofService) *ProofHandler {
	return &ProofHandler{service: svc}
}

// Attach godoc
// @Summary Upload proof
// @Description Attach a proof photo to an assignment
// @Tags Proofs
// @Accept mpfd
// @Produce json
// @Param id path string true "Homework ID"
// @Param image formData file true "Proof photo"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/proofs [post]
func (h *ProofHandler) Attach(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "an image file is required"))
		return
	}
	defer file.Close()

	proof, err := h.service.Attach(c.Request.Context(), c.Param("id"), claims.UserID, claims.DisplayName, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, proof, nil)
}

// List godoc
// @Summary List proofs
// @Description List an assignment's proofs with vote tallies
// @Tags Proofs
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/proofs [get]
func (h *ProofHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	proofs, err := h.service.List(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proofs, nil)
}

// Remove godoc
// @Summary Remove own proof
// @Description Delete the caller's proof and its image
// @Tags Proofs
// @Produce json
// @Param id path string true "Homework ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/proofs [delete]
func (h *ProofHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vote godoc
// @Summary Vote on a proof
// @Description Record a validity judgment on another member's proof
// @Tags Proofs
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param userId path string true "Proof owner's user ID"
// @Param payload body object true "Vote payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/proofs/{userId}/votes [post]
func (h *ProofHandler) Vote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		IsValid *bool `json:"is_valid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "is_valid is required"))
		return
	}

	outcome, err := h.service.Vote(c.Request.Context(), c.Param("id"), c.Param("userId"), claims.UserID, *req.IsValid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome}, nil)
}

// Report godoc
// @Summary Report a proof
// @Description File a moderation report against another member's proof
// @Tags Proofs
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param userId path string true "Reported user's ID"
// @Param payload body object true "Report payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /homework/{id}/proofs/{userId}/reports [post]
func (h *ProofHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a reason is required"))
		return
	}

	report, err := h.service.Report(c.Request.Context(), c.Param("id"), c.Param("userId"), claims.UserID, claims.DisplayName, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, report, nil)
}

// Image godoc
// @Summary Download proof image
// @Description Resolve a signed link to the stored JPEG
// @Tags Proofs
// @Produce jpeg
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /proof-images [get]
func (h *ProofHandler) Image(c *gin.Context) {
	reader, err := h.service.OpenImage(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		_ = c.Error(err)
	}
}
