package dto

import (
	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
)

// ReassignRequest moves a student between parallel section-courses.
type ReassignRequest struct {
	StudentID           string `json:"studentId" validate:"required"`
	FromSectionCourseID string `json:"fromSectionCourseId" validate:"required"`
	ToSectionCourseID   string `json:"toSectionCourseId" validate:"required"`
	ConfirmOverCapacity bool   `json:"confirmOverCapacity"`
	Reason              string `json:"reason" validate:"omitempty,max=500"`
}

// ReassignmentResult reports the outcome of a reassignment.
type ReassignmentResult struct {
	StudentID           string                     `json:"studentId"`
	FromSectionCourseID string                     `json:"fromSectionCourseId"`
	ToSectionCourseID   string                     `json:"toSectionCourseId"`
	NoOp                bool                       `json:"noop"`
	OverCapacity        bool                       `json:"overCapacity"`
	Destination         *engine.ReassignmentOption `json:"destination,omitempty"`
	Audit               *models.ReassignmentAudit  `json:"audit,omitempty"`
}
