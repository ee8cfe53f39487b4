package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leveling-api/internal/dto"
	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
	"github.com/noah-isme/leveling-api/pkg/response"
)

type reassignmentService interface {
	Options(ctx context.Context, studentID, fromSectionCourseID string) ([]engine.ReassignmentOption, error)
	Reassign(ctx context.Context, req dto.ReassignRequest, actorID string) (*dto.ReassignmentResult, error)
	History(ctx context.Context, studentID string) ([]models.ReassignmentAudit, error)
}

// ReassignmentHandler exposes endpoints to move students between parallel section-courses.
type ReassignmentHandler struct {
	service reassignmentService
}

// NewReassignmentHandler builds a new handler.
func NewReassignmentHandler(service reassignmentService) *ReassignmentHandler {
	return &ReassignmentHandler{service: service}
}

// Options godoc
// @Summary List reassignment destinations
// @Tags Reassignments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param sectionCourseId path string true "Current section-course ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/section-courses/{sectionCourseId}/reassignment-options [get]
func (h *ReassignmentHandler) Options(c *gin.Context) {
	options, err := h.service.Options(c.Request.Context(), c.Param("studentId"), c.Param("sectionCourseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Reassign godoc
// @Summary Move a student to a parallel section-course
// @Description Schedule conflicts are always rejected. Over-capacity moves need confirmOverCapacity.
// @Tags Reassignments
// @Accept json
// @Produce json
// @Param payload body dto.ReassignRequest true "Reassignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reassignments [post]
func (h *ReassignmentHandler) Reassign(c *gin.Context) {
	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reassignment payload"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	result, err := h.service.Reassign(c.Request.Context(), req, actorID)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrCapacityExceeded.Code {
			response.ErrorWithMeta(c, err, map[string]interface{}{"requiresConfirmation": true})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List a student's reassignments
// @Tags Reassignments
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/reassignments [get]
func (h *ReassignmentHandler) History(c *gin.Context) {
	audits, err := h.service.History(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, audits, nil)
}
