package dto

import (
	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
)

// StrategyIncremental only processes unsatisfied demands and never revokes assignments.
const StrategyIncremental = "INCREMENTAL"

// MatriculationRequest scopes a preview or commit. Previews need a faculty group; a commit
// without one covers the whole run.
type MatriculationRequest struct {
	FacultyGroup string `json:"facultyGroup" form:"facultyGroup" validate:"omitempty,max=120"`
	CampusName   string `json:"campusName" form:"campusName" validate:"omitempty,max=120"`
	Strategy     string `json:"strategy" form:"strategy" validate:"omitempty,oneof=INCREMENTAL"`
	Policy       string `json:"policy" form:"policy" validate:"omitempty,oneof=FILL_EXISTING_FIRST CREATION_ORDER MOTHER_SECTION_FIRST"`
}

// MatriculationPreview is the simulated outcome of a matriculation.
type MatriculationPreview struct {
	RunID         string                  `json:"runId"`
	FacultyGroup  string                  `json:"facultyGroup,omitempty"`
	CampusName    string                  `json:"campusName,omitempty"`
	Strategy      string                  `json:"strategy"`
	Policy        string                  `json:"policy"`
	AssignedCount int                     `json:"assignedCount"`
	SkippedCount  int                     `json:"skippedCount"`
	Placements    []engine.Placement      `json:"placements"`
	Unassigned    []engine.Unassigned     `json:"unassigned"`
	Sections      []engine.SectionSummary `json:"sections"`
	RunDefaults   *models.RunConfig       `json:"runDefaults,omitempty"`
}

// MatriculationResult is the committed outcome of a matriculation.
type MatriculationResult struct {
	MatriculationPreview
	RunStatus                 string `json:"runStatus"`
	ConflictsFoundAfterAssign int    `json:"conflictsFoundAfterAssign"`
	ConflictSweepError        string `json:"conflictSweepError,omitempty"`
}
