package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leveling-api/internal/dto"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
	"github.com/noah-isme/leveling-api/pkg/response"
)

type matriculationService interface {
	Preview(ctx context.Context, runID string, req dto.MatriculationRequest) (*dto.MatriculationPreview, error)
	Matriculate(ctx context.Context, runID string, req dto.MatriculationRequest) (*dto.MatriculationResult, error)
}

// MatriculationHandler exposes leveling run matriculation endpoints.
type MatriculationHandler struct {
	service matriculationService
}

// NewMatriculationHandler builds a new handler.
func NewMatriculationHandler(service matriculationService) *MatriculationHandler {
	return &MatriculationHandler{service: service}
}

// Preview godoc
// @Summary Simulate a matriculation
// @Description Plans pending demands of the faculty without writing anything.
// @Tags Matriculation
// @Produce json
// @Param runId path string true "Leveling run ID"
// @Param facultyGroup query string true "Faculty group"
// @Param campusName query string false "Campus name"
// @Param strategy query string false "Only INCREMENTAL is supported"
// @Param policy query string false "FILL_EXISTING_FIRST, CREATION_ORDER or MOTHER_SECTION_FIRST"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /leveling-runs/{runId}/matriculation/preview [get]
func (h *MatriculationHandler) Preview(c *gin.Context) {
	var req dto.MatriculationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), c.Param("runId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Matriculate godoc
// @Summary Commit a matriculation
// @Description Places pending demands and reports conflicts among touched students. Without a facultyGroup the whole run is matriculated.
// @Tags Matriculation
// @Accept json
// @Produce json
// @Param runId path string true "Leveling run ID"
// @Param payload body dto.MatriculationRequest false "Matriculation scope"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /leveling-runs/{runId}/matriculation [post]
func (h *MatriculationHandler) Matriculate(c *gin.Context) {
	var req dto.MatriculationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid matriculation payload"))
		return
	}
	result, err := h.service.Matriculate(c.Request.Context(), c.Param("runId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
