package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/leveling-api/internal/dto"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
	"github.com/noah-isme/leveling-api/pkg/response"
)

type conflictService interface {
	List(ctx context.Context, query dto.ConflictQuery) ([]dto.ConflictView, error)
}

// ConflictHandler exposes the schedule conflict report.
type ConflictHandler struct {
	service conflictService
}

// NewConflictHandler builds a new handler.
func NewConflictHandler(service conflictService) *ConflictHandler {
	return &ConflictHandler{service: service}
}

// List godoc
// @Summary List student schedule conflicts
// @Tags Conflicts
// @Produce json
// @Param periodId query string false "Period ID (defaults to the active period)"
// @Param facultyGroup query string false "Faculty group"
// @Param campusName query string false "Campus name"
// @Param courseName query string false "Course name fragment"
// @Param studentCode query string false "Student code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	var query dto.ConflictQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	views, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, map[string]interface{}{"total": len(views)})
}
