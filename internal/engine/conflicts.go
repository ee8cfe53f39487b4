package engine

import (
	"iter"
	"sort"
	"time"
)

// ConflictPair is two overlapping blocks held by the same student. BlockA has the lower block id.
type ConflictPair struct {
	StudentID string           `json:"studentId"`
	BlockA    OccupiedInterval `json:"blockA"`
	BlockB    OccupiedInterval `json:"blockB"`
}

// Overlaps reports whether two intervals share a day, a half-open time range and a validity window.
// A missing date bound is open-ended.
func Overlaps(a, b OccupiedInterval) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	if a.StartMinute >= b.EndMinute || b.StartMinute >= a.EndMinute {
		return false
	}
	return windowsIntersect(a.StartDate, a.EndDate, b.StartDate, b.EndDate)
}

func windowsIntersect(aStart, aEnd, bStart, bEnd *time.Time) bool {
	if aStart != nil && bEnd != nil && aStart.After(*bEnd) {
		return false
	}
	if bStart != nil && aEnd != nil && bStart.After(*aEnd) {
		return false
	}
	return true
}

// CreatesConflict reports whether any candidate interval overlaps an interval of a different
// section-course in existing.
func CreatesConflict(existing, candidate iter.Seq[OccupiedInterval]) bool {
	for c := range candidate {
		for e := range existing {
			if e.SectionCourseID == c.SectionCourseID {
				continue
			}
			if Overlaps(e, c) {
				return true
			}
		}
	}
	return false
}

// FindConflicts lists every conflicting block pair for the given students, or for every indexed
// student when studentIDs is empty. Output is sorted by student, then block ids.
func FindConflicts(ix *ScheduleIndex, studentIDs []string) []ConflictPair {
	if len(studentIDs) == 0 {
		studentIDs = ix.Students()
	}
	ids := uniqueSorted(studentIDs)

	var pairs []ConflictPair
	for _, studentID := range ids {
		pairs = append(pairs, studentConflicts(ix, studentID)...)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].StudentID != pairs[j].StudentID {
			return pairs[i].StudentID < pairs[j].StudentID
		}
		if pairs[i].BlockA.BlockID != pairs[j].BlockA.BlockID {
			return pairs[i].BlockA.BlockID < pairs[j].BlockA.BlockID
		}
		return pairs[i].BlockB.BlockID < pairs[j].BlockB.BlockID
	})
	return pairs
}

func studentConflicts(ix *ScheduleIndex, studentID string) []ConflictPair {
	var intervals []OccupiedInterval
	for interval := range ix.Intervals(studentID) {
		intervals = append(intervals, interval)
	}
	sort.SliceStable(intervals, func(i, j int) bool { return intervals[i].BlockID < intervals[j].BlockID })

	type blockPair struct{ a, b string }
	seen := make(map[blockPair]struct{})
	var pairs []ConflictPair
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			if a.SectionCourseID == b.SectionCourseID || !Overlaps(a, b) {
				continue
			}
			key := blockPair{a.BlockID, b.BlockID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, ConflictPair{StudentID: studentID, BlockA: a, BlockB: b})
		}
	}
	return pairs
}

func uniqueSorted(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
