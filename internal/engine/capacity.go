package engine

import "github.com/noah-isme/leveling-api/internal/models"

// CapacitySource explains where a section-course's seat ceiling came from.
type CapacitySource string

const (
	CapacitySourceVirtual           CapacitySource = "VIRTUAL"
	CapacitySourceClassroom         CapacitySource = "AULA"
	CapacitySourceNoClassroom       CapacitySource = "SIN_AULA"
	CapacitySourceInactiveClassroom CapacitySource = "AULA_INACTIVA"
)

// Capacity is the effective seat ceiling of a section-course. A nil Ceiling means unbounded.
type Capacity struct {
	Ceiling *int           `json:"ceiling"`
	Source  CapacitySource `json:"source"`
}

// Unbounded reports whether any number of students fits.
func (c Capacity) Unbounded() bool {
	return c.Ceiling == nil
}

// Admits reports whether one more student fits on top of current.
func (c Capacity) Admits(current int) bool {
	return !c.Exceeded(current + 1)
}

// Exceeded reports whether projected students are more than the ceiling.
func (c Capacity) Exceeded(projected int) bool {
	if c.Ceiling == nil {
		return false
	}
	return projected > *c.Ceiling
}

// ResolveCapacity determines the effective ceiling for a section-course.
//
// An inactive classroom falls back to the section policy (initial + extra) rather than zero seats.
// A classroom id whose row could not be joined is treated as no classroom.
func ResolveCapacity(sc models.SectionCourse) Capacity {
	if sc.Modality.IsVirtual() {
		return Capacity{Source: CapacitySourceVirtual}
	}
	fallback := sc.InitialCapacity + sc.MaxExtraCapacity
	if sc.ClassroomID != nil && sc.ClassroomStatus != nil {
		switch *sc.ClassroomStatus {
		case models.ClassroomStatusActive:
			if sc.ClassroomCapacity != nil {
				ceiling := *sc.ClassroomCapacity
				return Capacity{Ceiling: &ceiling, Source: CapacitySourceClassroom}
			}
		case models.ClassroomStatusInactive:
			return Capacity{Ceiling: &fallback, Source: CapacitySourceInactiveClassroom}
		}
	}
	return Capacity{Ceiling: &fallback, Source: CapacitySourceNoClassroom}
}
