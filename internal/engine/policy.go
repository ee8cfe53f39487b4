package engine

import "github.com/noah-isme/leveling-api/internal/models"

// SectionCandidate is a section-course together with the count it would have at the moment of
// placement, including earlier placements of the same plan.
type SectionCandidate struct {
	SectionCourse models.SectionCourse
	Count         int
}

// SectionPolicy orders candidate section-courses for a demand. Less must be a strict weak ordering
// and must break every tie so plans stay deterministic.
type SectionPolicy interface {
	Name() string
	Less(a, b SectionCandidate) bool
}

// FillExistingFirst prefers section-courses that already have students, then creation order.
type FillExistingFirst struct{}

func (FillExistingFirst) Name() string { return "FILL_EXISTING_FIRST" }

func (FillExistingFirst) Less(a, b SectionCandidate) bool {
	aFilled, bFilled := a.Count > 0, b.Count > 0
	if aFilled != bFilled {
		return aFilled
	}
	return creationLess(a.SectionCourse, b.SectionCourse)
}

// CreationOrder places students by creation order only.
type CreationOrder struct{}

func (CreationOrder) Name() string { return "CREATION_ORDER" }

func (CreationOrder) Less(a, b SectionCandidate) bool {
	return creationLess(a.SectionCourse, b.SectionCourse)
}

// MotherSectionFirst puts the course's mother section ahead and falls back to FillExistingFirst.
type MotherSectionFirst struct{}

func (MotherSectionFirst) Name() string { return "MOTHER_SECTION_FIRST" }

func (MotherSectionFirst) Less(a, b SectionCandidate) bool {
	if a.SectionCourse.IsMotherSection != b.SectionCourse.IsMotherSection {
		return a.SectionCourse.IsMotherSection
	}
	return FillExistingFirst{}.Less(a, b)
}

// PolicyByName resolves a policy by its name, defaulting to FillExistingFirst.
func PolicyByName(name string) (SectionPolicy, bool) {
	switch name {
	case "", FillExistingFirst{}.Name():
		return FillExistingFirst{}, true
	case CreationOrder{}.Name():
		return CreationOrder{}, true
	case MotherSectionFirst{}.Name():
		return MotherSectionFirst{}, true
	default:
		return nil, false
	}
}

func creationLess(a, b models.SectionCourse) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
