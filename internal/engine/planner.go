package engine

import (
	"errors"
	"sort"

	"github.com/noah-isme/leveling-api/internal/models"
)

// UnassignedReason explains why a demand could not be placed.
type UnassignedReason string

const (
	ReasonNoCapacity         UnassignedReason = "NO_CAPACITY"
	ReasonScheduleConflict   UnassignedReason = "SCHEDULE_CONFLICT"
	ReasonNoSectionAvailable UnassignedReason = "NO_SECTION_AVAILABLE"
)

var (
	// ErrRunNotMatriculable is returned for runs the planner cannot operate on.
	ErrRunNotMatriculable = errors.New("leveling run is not matriculable")
	// ErrNoReadySections is returned when the faculty scope has no section-course with a schedule.
	ErrNoReadySections = errors.New("no ready section-courses in scope")
)

// PlanInput is the full snapshot the planner works on.
type PlanInput struct {
	Run          models.LevelingRun
	FacultyGroup string
	CampusName   string
	// Demands holds the run's pending demands. Demands outside the faculty/campus scope are ignored.
	Demands []models.StudentCourseDemand
	// SectionCourses holds the candidate section-courses with blocks and live student counts.
	SectionCourses []models.SectionCourse
	// Assignments holds the existing assignments of the demand students within the period.
	Assignments []models.Assignment
	// Index covers the blocks of every section-course referenced by Assignments. It is not mutated.
	Index  *ScheduleIndex
	Policy SectionPolicy
}

// Placement is a demand placed into a section-course.
type Placement struct {
	DemandID        string `json:"demandId"`
	StudentID       string `json:"studentId"`
	CourseID        string `json:"courseId"`
	SectionCourseID string `json:"sectionCourseId"`
}

// Unassigned is a demand the planner could not place.
type Unassigned struct {
	DemandID    string           `json:"demandId"`
	StudentID   string           `json:"studentId"`
	StudentCode string           `json:"studentCode"`
	StudentName string           `json:"studentName"`
	CourseID    string           `json:"courseId"`
	CourseName  string           `json:"courseName"`
	Reason      UnassignedReason `json:"reason"`
}

// SectionSummary reports the occupancy of a scoped section-course before and after the plan.
type SectionSummary struct {
	SectionCourseID string          `json:"sectionCourseId"`
	SectionCode     string          `json:"sectionCode"`
	CourseName      string          `json:"courseName"`
	Modality        models.Modality `json:"modality"`
	AssignedBefore  int             `json:"assignedBefore"`
	AssignedAfter   int             `json:"assignedAfter"`
	Capacity        *int            `json:"capacity"`
	CapacitySource  CapacitySource  `json:"capacitySource"`
}

// Plan is the deterministic outcome of placing a demand backlog.
type Plan struct {
	Placements []Placement      `json:"placements"`
	Unassigned []Unassigned     `json:"unassigned"`
	Sections   []SectionSummary `json:"sections"`
	Skipped    int              `json:"skipped"`
	Policy     string           `json:"policy"`
}

// AssignedCount is the number of placements in the plan.
func (p *Plan) AssignedCount() int {
	return len(p.Placements)
}

// TouchedStudents returns the ids of students who received a placement, sorted.
func (p *Plan) TouchedStudents() []string {
	ids := make([]string, 0, len(p.Placements))
	for _, placement := range p.Placements {
		ids = append(ids, placement.StudentID)
	}
	return uniqueSorted(ids)
}

// BuildPlan places pending demands into section-courses without exceeding capacity and without
// introducing a schedule conflict for any student.
func BuildPlan(in PlanInput) (*Plan, error) {
	if !in.Run.Status.Matriculable() {
		return nil, ErrRunNotMatriculable
	}
	policy := in.Policy
	if policy == nil {
		policy = FillExistingFirst{}
	}
	ix := in.Index
	if ix == nil {
		ix = NewScheduleIndex(Scope{PeriodID: in.Run.PeriodID}, in.SectionCourses, in.Assignments)
	} else {
		ix = ix.Clone()
	}

	scoped := make([]models.SectionCourse, 0, len(in.SectionCourses))
	ready := 0
	for _, sc := range in.SectionCourses {
		if !in.inScope(sc.FacultyGroup, sc.CampusName) {
			continue
		}
		scoped = append(scoped, sc)
		if sc.Ready() {
			ready++
		}
	}
	if ready == 0 {
		return nil, ErrNoReadySections
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		if scoped[i].CourseName != scoped[j].CourseName {
			return scoped[i].CourseName < scoped[j].CourseName
		}
		if scoped[i].SectionCode != scoped[j].SectionCode {
			return scoped[i].SectionCode < scoped[j].SectionCode
		}
		return scoped[i].ID < scoped[j].ID
	})

	counts := make(map[string]int, len(scoped))
	for _, sc := range scoped {
		counts[sc.ID] = sc.StudentCount
	}

	held := make(map[string]struct{}, len(in.Assignments))
	for _, a := range in.Assignments {
		held[holdKey(a.StudentID, a.CourseID)] = struct{}{}
	}

	plan := &Plan{Policy: policy.Name()}
	for _, demand := range in.orderedDemands() {
		key := holdKey(demand.StudentID, demand.CourseID)
		if _, ok := held[key]; ok {
			plan.Skipped++
			continue
		}

		candidates := eligible(scoped, demand, counts)
		if len(candidates) == 0 {
			plan.Unassigned = append(plan.Unassigned, unassigned(demand, ReasonNoSectionAvailable))
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool { return policy.Less(candidates[i], candidates[j]) })

		placed := false
		hadRoom := false
		for _, candidate := range candidates {
			if !ResolveCapacity(candidate.SectionCourse).Admits(candidate.Count) {
				continue
			}
			hadRoom = true
			if CreatesConflict(ix.Intervals(demand.StudentID), ix.SectionIntervals(candidate.SectionCourse)) {
				continue
			}
			sc := candidate.SectionCourse
			plan.Placements = append(plan.Placements, Placement{
				DemandID:        demand.ID,
				StudentID:       demand.StudentID,
				CourseID:        demand.CourseID,
				SectionCourseID: sc.ID,
			})
			counts[sc.ID]++
			held[key] = struct{}{}
			ix.Assign(demand.StudentID, sc.ID)
			placed = true
			break
		}
		if placed {
			continue
		}
		reason := ReasonNoCapacity
		if hadRoom {
			reason = ReasonScheduleConflict
		}
		plan.Unassigned = append(plan.Unassigned, unassigned(demand, reason))
	}

	plan.Sections = make([]SectionSummary, 0, len(scoped))
	for _, sc := range scoped {
		capacity := ResolveCapacity(sc)
		plan.Sections = append(plan.Sections, SectionSummary{
			SectionCourseID: sc.ID,
			SectionCode:     sc.SectionCode,
			CourseName:      sc.CourseName,
			Modality:        sc.Modality,
			AssignedBefore:  sc.StudentCount,
			AssignedAfter:   counts[sc.ID],
			Capacity:        capacity.Ceiling,
			CapacitySource:  capacity.Source,
		})
	}
	return plan, nil
}

func (in PlanInput) inScope(faculty, campus string) bool {
	if in.FacultyGroup != "" && faculty != in.FacultyGroup {
		return false
	}
	if in.CampusName != "" && campus != in.CampusName {
		return false
	}
	return true
}

// orderedDemands groups scoped demands by course name and orders students inside each course.
func (in PlanInput) orderedDemands() []models.StudentCourseDemand {
	out := make([]models.StudentCourseDemand, 0, len(in.Demands))
	for _, d := range in.Demands {
		if in.Run.ID != "" && d.RunID != "" && d.RunID != in.Run.ID {
			continue
		}
		if !in.inScope(d.FacultyGroup, d.CampusName) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CourseName != b.CourseName {
			return a.CourseName < b.CourseName
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		if a.StudentCode != b.StudentCode {
			return a.StudentCode < b.StudentCode
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.ID < b.ID
	})
	return out
}

func eligible(scoped []models.SectionCourse, d models.StudentCourseDemand, counts map[string]int) []SectionCandidate {
	var out []SectionCandidate
	for _, sc := range scoped {
		if sc.CourseID != d.CourseID || sc.FacultyGroup != d.FacultyGroup || sc.CampusName != d.CampusName {
			continue
		}
		if !sc.Ready() || !sameModalityFamily(d.SourceModality, sc.Modality) {
			continue
		}
		out = append(out, SectionCandidate{SectionCourse: sc, Count: counts[sc.ID]})
	}
	return out
}

// sameModalityFamily separates virtual from in-person delivery. Hybrid counts as in-person.
func sameModalityFamily(source *models.Modality, target models.Modality) bool {
	if source == nil || *source == "" {
		return true
	}
	return source.IsVirtual() == target.IsVirtual()
}

func unassigned(d models.StudentCourseDemand, reason UnassignedReason) Unassigned {
	return Unassigned{
		DemandID:    d.ID,
		StudentID:   d.StudentID,
		StudentCode: d.StudentCode,
		StudentName: d.StudentName,
		CourseID:    d.CourseID,
		CourseName:  d.CourseName,
		Reason:      reason,
	}
}

func holdKey(studentID, courseID string) string {
	return studentID + "|" + courseID
}
