package engine

import (
	"iter"
	"sort"
	"time"

	"github.com/noah-isme/leveling-api/internal/models"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// Scope bounds an index to a period. Its dates are the default validity of blocks without their own.
type Scope struct {
	PeriodID string
	StartsAt *time.Time
	EndsAt   *time.Time
}

// ScopeFromPeriod builds a scope from a period snapshot.
func ScopeFromPeriod(p models.Period) Scope {
	return Scope{PeriodID: p.ID, StartsAt: p.StartsAt, EndsAt: p.EndsAt}
}

// OccupiedInterval is one block a student sits in, normalised to minutes since midnight.
type OccupiedInterval struct {
	SectionCourseID string     `json:"sectionCourseId"`
	BlockID         string     `json:"blockId"`
	DayOfWeek       int        `json:"dayOfWeek"`
	StartMinute     int        `json:"startMinute"`
	EndMinute       int        `json:"endMinute"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
}

const endOfDay = 24 * 60

// ParseClock converts HH:mm or HH:mm:ss into minutes since midnight. 24:00 is accepted as the end
// of the day.
func ParseClock(raw string) (int, bool) {
	if raw == "24:00" || raw == "24:00:00" {
		return endOfDay, true
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// ScheduleIndex maps students to the blocks of the section-courses they are assigned to.
type ScheduleIndex struct {
	scope    Scope
	blocks   map[string][]OccupiedInterval
	students map[string][]string
}

// NewScheduleIndex indexes the blocks of sectionCourses and the students assigned to them.
// Assignments pointing to section-courses outside the snapshot contribute no intervals.
func NewScheduleIndex(scope Scope, sectionCourses []models.SectionCourse, assignments []models.Assignment) *ScheduleIndex {
	ix := &ScheduleIndex{
		scope:    scope,
		blocks:   make(map[string][]OccupiedInterval, len(sectionCourses)),
		students: make(map[string][]string),
	}
	for _, sc := range sectionCourses {
		ix.blocks[sc.ID] = ix.intervalsOf(sc.ID, sc.Blocks)
	}
	for _, a := range assignments {
		ix.Assign(a.StudentID, a.SectionCourseID)
	}
	return ix
}

// Scope returns the scope the index was built with.
func (ix *ScheduleIndex) Scope() Scope {
	return ix.scope
}

// Assign records a student in a section-course. Repeated calls are ignored.
func (ix *ScheduleIndex) Assign(studentID, sectionCourseID string) {
	current := ix.students[studentID]
	pos := sort.SearchStrings(current, sectionCourseID)
	if pos < len(current) && current[pos] == sectionCourseID {
		return
	}
	next := make([]string, 0, len(current)+1)
	next = append(next, current[:pos]...)
	next = append(next, sectionCourseID)
	next = append(next, current[pos:]...)
	ix.students[studentID] = next
}

// Unassign removes a student from a section-course.
func (ix *ScheduleIndex) Unassign(studentID, sectionCourseID string) {
	current := ix.students[studentID]
	pos := sort.SearchStrings(current, sectionCourseID)
	if pos >= len(current) || current[pos] != sectionCourseID {
		return
	}
	next := make([]string, 0, len(current)-1)
	next = append(next, current[:pos]...)
	next = append(next, current[pos+1:]...)
	ix.students[studentID] = next
}

// IsAssigned reports whether the student holds the section-course.
func (ix *ScheduleIndex) IsAssigned(studentID, sectionCourseID string) bool {
	current := ix.students[studentID]
	pos := sort.SearchStrings(current, sectionCourseID)
	return pos < len(current) && current[pos] == sectionCourseID
}

// Clone returns an independent copy that can be mutated by simulations.
func (ix *ScheduleIndex) Clone() *ScheduleIndex {
	clone := &ScheduleIndex{
		scope:    ix.scope,
		blocks:   make(map[string][]OccupiedInterval, len(ix.blocks)),
		students: make(map[string][]string, len(ix.students)),
	}
	for id, intervals := range ix.blocks {
		clone.blocks[id] = intervals
	}
	for id, scs := range ix.students {
		clone.students[id] = append([]string(nil), scs...)
	}
	return clone
}

// Students returns every indexed student id in ascending order.
func (ix *ScheduleIndex) Students() []string {
	ids := make([]string, 0, len(ix.students))
	for id, scs := range ix.students {
		if len(scs) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Intervals yields every occupied interval of the student. The sequence is restartable.
func (ix *ScheduleIndex) Intervals(studentID string) iter.Seq[OccupiedInterval] {
	return ix.intervalsExcept(studentID, "")
}

// IntervalsExcept yields the student's intervals skipping one section-course.
func (ix *ScheduleIndex) IntervalsExcept(studentID, sectionCourseID string) iter.Seq[OccupiedInterval] {
	return ix.intervalsExcept(studentID, sectionCourseID)
}

func (ix *ScheduleIndex) intervalsExcept(studentID, skip string) iter.Seq[OccupiedInterval] {
	return func(yield func(OccupiedInterval) bool) {
		for _, scID := range ix.students[studentID] {
			if scID == skip {
				continue
			}
			for _, interval := range ix.blocks[scID] {
				if !yield(interval) {
					return
				}
			}
		}
	}
}

// SectionIntervals yields the parsed blocks of a section-course. Indexed section-courses are served
// from the index, others are parsed from their blocks on the fly.
func (ix *ScheduleIndex) SectionIntervals(sc models.SectionCourse) iter.Seq[OccupiedInterval] {
	intervals, ok := ix.blocks[sc.ID]
	if !ok {
		intervals = ix.intervalsOf(sc.ID, sc.Blocks)
	}
	return func(yield func(OccupiedInterval) bool) {
		for _, interval := range intervals {
			if !yield(interval) {
				return
			}
		}
	}
}

func (ix *ScheduleIndex) intervalsOf(sectionCourseID string, blocks []models.ScheduleBlock) []OccupiedInterval {
	out := make([]OccupiedInterval, 0, len(blocks))
	for _, block := range blocks {
		interval, ok := ix.toInterval(sectionCourseID, block)
		if ok {
			out = append(out, interval)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockID < out[j].BlockID })
	return out
}

func (ix *ScheduleIndex) toInterval(sectionCourseID string, block models.ScheduleBlock) (OccupiedInterval, bool) {
	if block.DayOfWeek < 1 || block.DayOfWeek > 7 {
		return OccupiedInterval{}, false
	}
	start, ok := ParseClock(block.StartTime)
	if !ok {
		return OccupiedInterval{}, false
	}
	end, ok := ParseClock(block.EndTime)
	if !ok || end <= start {
		return OccupiedInterval{}, false
	}
	interval := OccupiedInterval{
		SectionCourseID: sectionCourseID,
		BlockID:         block.ID,
		DayOfWeek:       block.DayOfWeek,
		StartMinute:     start,
		EndMinute:       end,
		StartDate:       block.StartDate,
		EndDate:         block.EndDate,
	}
	if interval.StartDate == nil {
		interval.StartDate = ix.scope.StartsAt
	}
	if interval.EndDate == nil {
		interval.EndDate = ix.scope.EndsAt
	}
	return interval, true
}
