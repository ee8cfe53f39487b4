package engine

import (
	"sort"

	"github.com/noah-isme/leveling-api/internal/models"
)

// ReassignmentOption is one candidate destination for moving a student between parallel sections.
type ReassignmentOption struct {
	SectionCourseID   string          `json:"sectionCourseId"`
	SectionCode       string          `json:"sectionCode"`
	CourseName        string          `json:"courseName"`
	Modality          models.Modality `json:"modality"`
	CurrentStudents   int             `json:"currentStudents"`
	ProjectedStudents int             `json:"projectedStudents"`
	Capacity          *int            `json:"capacity"`
	CapacitySource    CapacitySource  `json:"capacitySource"`
	OverCapacity      bool            `json:"overCapacity"`
	CreatesConflict   bool            `json:"createsConflict"`
	Preselected       bool            `json:"preselected"`
}

// IsValidDestination reports whether to is a parallel section-course of from in the same period.
func IsValidDestination(from, to models.SectionCourse) bool {
	return to.ID != from.ID &&
		to.PeriodID == from.PeriodID &&
		to.CourseID == from.CourseID &&
		to.FacultyGroup == from.FacultyGroup &&
		to.CampusName == from.CampusName &&
		to.Modality == from.Modality
}

// EvaluateDestination scores moving the student from one section-course to another. The conflict
// check replaces the student's occupancy of from with the blocks of to.
func EvaluateDestination(ix *ScheduleIndex, studentID string, from, to models.SectionCourse) ReassignmentOption {
	capacity := ResolveCapacity(to)
	projected := to.StudentCount + 1
	return ReassignmentOption{
		SectionCourseID:   to.ID,
		SectionCode:       to.SectionCode,
		CourseName:        to.CourseName,
		Modality:          to.Modality,
		CurrentStudents:   to.StudentCount,
		ProjectedStudents: projected,
		Capacity:          capacity.Ceiling,
		CapacitySource:    capacity.Source,
		OverCapacity:      capacity.Exceeded(projected),
		CreatesConflict:   CreatesConflict(ix.IntervalsExcept(studentID, from.ID), ix.SectionIntervals(to)),
	}
}

// EvaluateOptions scores every valid destination among candidates, ordered by section code. The
// first option without a conflict is preselected.
func EvaluateOptions(ix *ScheduleIndex, studentID string, from models.SectionCourse, candidates []models.SectionCourse) []ReassignmentOption {
	valid := make([]models.SectionCourse, 0, len(candidates))
	for _, candidate := range candidates {
		if IsValidDestination(from, candidate) {
			valid = append(valid, candidate)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].SectionCode != valid[j].SectionCode {
			return valid[i].SectionCode < valid[j].SectionCode
		}
		return valid[i].ID < valid[j].ID
	})

	options := make([]ReassignmentOption, 0, len(valid))
	preselected := false
	for _, candidate := range valid {
		option := EvaluateDestination(ix, studentID, from, candidate)
		if !preselected && !option.CreatesConflict {
			option.Preselected = true
			preselected = true
		}
		options = append(options, option)
	}
	return options
}
