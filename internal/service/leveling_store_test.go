package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/leveling-api/internal/models"
)

var storeBaseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// levelingStore is an in-memory stand-in for the leveling tables. Its views implement the
// repository interfaces the services depend on.
type levelingStore struct {
	periods      map[string]models.Period
	activePeriod string
	runs         map[string]models.LevelingRun
	demands      []models.StudentCourseDemand
	sections     map[string]models.SectionCourse
	blocks       []models.ScheduleBlock
	assignments  []models.Assignment
	audits       []models.ReassignmentAudit

	locks          [][]string
	studentLocks   [][]string
	statusUpdates  []models.RunStatus
	studentLookups int
	failLookupFrom int
	createBatchErr error
}

func newLevelingStore() *levelingStore {
	starts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	return &levelingStore{
		periods: map[string]models.Period{
			"period-1": {ID: "period-1", Code: "2025-1", Name: "2025-I", Status: models.PeriodStatusActive, StartsAt: &starts, EndsAt: &ends},
		},
		activePeriod: "period-1",
		runs: map[string]models.LevelingRun{
			"run-1": {ID: "run-1", PeriodID: "period-1", Status: models.RunStatusStructured},
		},
		sections: map[string]models.SectionCourse{},
	}
}

type sectionOption func(*models.SectionCourse)

func capacity(initial, extra int) sectionOption {
	return func(sc *models.SectionCourse) {
		sc.InitialCapacity = initial
		sc.MaxExtraCapacity = extra
	}
}

func course(id, name string) sectionOption {
	return func(sc *models.SectionCourse) {
		sc.CourseID = id
		sc.CourseName = name
	}
}

func faculty(group string) sectionOption {
	return func(sc *models.SectionCourse) { sc.FacultyGroup = group }
}

// addSection registers a section-course with one block per "day start end" entry such as "1 08:00 10:00".
func (s *levelingStore) addSection(id string, blocks []string, opts ...sectionOption) {
	sc := models.SectionCourse{
		ID:              id,
		SectionID:       "sec-" + id,
		PeriodID:        "period-1",
		SectionCode:     "S-" + id,
		CourseID:        "course-math",
		CourseName:      "Matematica",
		FacultyGroup:    "INGENIERIA",
		CampusName:      "LIMA",
		Modality:        models.ModalityPresencial,
		InitialCapacity: 30,
		CreatedAt:       storeBaseTime.Add(time.Duration(len(s.sections)) * time.Minute),
	}
	for _, opt := range opts {
		opt(&sc)
	}
	s.sections[id] = sc
	for i, raw := range blocks {
		var day int
		var start, end string
		_, _ = fmt.Sscanf(raw, "%d %s %s", &day, &start, &end)
		s.blocks = append(s.blocks, models.ScheduleBlock{
			ID:              fmt.Sprintf("%s-b%d", id, i+1),
			SectionCourseID: id,
			DayOfWeek:       day,
			StartTime:       start,
			EndTime:         end,
		})
	}
}

func (s *levelingStore) addDemand(id, studentID, sectionCourseID string) {
	sc := s.sections[sectionCourseID]
	s.demands = append(s.demands, models.StudentCourseDemand{
		ID:           id,
		RunID:        "run-1",
		StudentID:    studentID,
		StudentCode:  "C-" + studentID,
		StudentName:  "Student " + studentID,
		CourseID:     sc.CourseID,
		CourseName:   sc.CourseName,
		FacultyGroup: sc.FacultyGroup,
		CampusName:   sc.CampusName,
		IsRequired:   true,
	})
}

func (s *levelingStore) assign(studentID, sectionCourseID string) {
	s.assignments = append(s.assignments, models.Assignment{
		ID:              fmt.Sprintf("as-%d", len(s.assignments)+1),
		SectionCourseID: sectionCourseID,
		StudentID:       studentID,
		StudentCode:     "C-" + studentID,
		StudentName:     "Student " + studentID,
		CourseID:        s.sections[sectionCourseID].CourseID,
		CreatedAt:       storeBaseTime,
	})
}

func (s *levelingStore) holds(studentID, sectionCourseID string) bool {
	for _, a := range s.assignments {
		if a.StudentID == studentID && a.SectionCourseID == sectionCourseID {
			return true
		}
	}
	return false
}

func (s *levelingStore) count(sectionCourseID string) int {
	n := 0
	for _, a := range s.assignments {
		if a.SectionCourseID == sectionCourseID {
			n++
		}
	}
	return n
}

func (s *levelingStore) snapshot(id string) models.SectionCourse {
	sc := s.sections[id]
	sc.StudentCount = s.count(id)
	return sc
}

func (s *levelingStore) matches(sc models.SectionCourse, filter models.SectionCourseFilter) bool {
	if filter.PeriodID != "" && sc.PeriodID != filter.PeriodID {
		return false
	}
	if filter.FacultyGroup != "" && sc.FacultyGroup != filter.FacultyGroup {
		return false
	}
	if filter.CampusName != "" && sc.CampusName != filter.CampusName {
		return false
	}
	if filter.CourseID != "" && sc.CourseID != filter.CourseID {
		return false
	}
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			if id == sc.ID {
				return true
			}
		}
		return false
	}
	return true
}

func (s *levelingStore) sortedSectionIDs() []string {
	ids := make([]string, 0, len(s.sections))
	for id := range s.sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type storePeriods struct{ *levelingStore }

func (s storePeriods) FindByID(ctx context.Context, id string) (*models.Period, error) {
	p, ok := s.periods[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (s storePeriods) FindActive(ctx context.Context) (*models.Period, error) {
	if s.activePeriod == "" {
		return nil, sql.ErrNoRows
	}
	return s.FindByID(ctx, s.activePeriod)
}

type storeRuns struct{ *levelingStore }

func (s storeRuns) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LevelingRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &run, nil
}

func (s storeRuns) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RunStatus) error {
	run, ok := s.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = status
	s.runs[id] = run
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

type storeDemands struct{ *levelingStore }

func (s storeDemands) ListPending(ctx context.Context, exec sqlx.ExtContext, filter models.DemandFilter) ([]models.StudentCourseDemand, error) {
	var out []models.StudentCourseDemand
	for _, d := range s.demands {
		if d.RunID != filter.RunID || d.SectionCourseID != nil {
			continue
		}
		if filter.FacultyGroup != "" && d.FacultyGroup != filter.FacultyGroup {
			continue
		}
		if filter.CampusName != "" && d.CampusName != filter.CampusName {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s storeDemands) MarkAssigned(ctx context.Context, exec sqlx.ExtContext, demandID, sectionCourseID string, at time.Time) error {
	for i := range s.demands {
		if s.demands[i].ID == demandID {
			id := sectionCourseID
			s.demands[i].SectionCourseID = &id
			s.demands[i].AssignedAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s storeDemands) Repoint(ctx context.Context, exec sqlx.ExtContext, studentID, fromSectionCourseID, toSectionCourseID string) error {
	for i := range s.demands {
		d := &s.demands[i]
		if d.StudentID == studentID && d.SectionCourseID != nil && *d.SectionCourseID == fromSectionCourseID {
			to := toSectionCourseID
			d.SectionCourseID = &to
		}
	}
	return nil
}

type storeSections struct{ *levelingStore }

func (s storeSections) List(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]models.SectionCourse, error) {
	var out []models.SectionCourse
	for _, id := range s.sortedSectionIDs() {
		if sc := s.snapshot(id); s.matches(sc, filter) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s storeSections) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionCourse, error) {
	if _, ok := s.sections[id]; !ok {
		return nil, sql.ErrNoRows
	}
	sc := s.snapshot(id)
	return &sc, nil
}

func (s storeSections) Lock(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]string, error) {
	var ids []string
	for _, id := range s.sortedSectionIDs() {
		if s.matches(s.sections[id], filter) {
			ids = append(ids, id)
		}
	}
	s.locks = append(s.locks, ids)
	return ids, nil
}

type storeBlocks struct{ *levelingStore }

func (s storeBlocks) ListBySectionCourses(ctx context.Context, exec sqlx.ExtContext, ids []string) ([]models.ScheduleBlock, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []models.ScheduleBlock
	for _, b := range s.blocks {
		if _, ok := wanted[b.SectionCourseID]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

type storeAssignments struct{ *levelingStore }

func (s storeAssignments) ListByStudents(ctx context.Context, exec sqlx.ExtContext, periodID string, studentIDs []string) ([]models.Assignment, error) {
	s.studentLookups++
	if s.failLookupFrom > 0 && s.studentLookups >= s.failLookupFrom {
		return nil, fmt.Errorf("connection reset")
	}
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	var out []models.Assignment
	for _, a := range s.assignments {
		if _, ok := wanted[a.StudentID]; ok && s.sections[a.SectionCourseID].PeriodID == periodID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s storeAssignments) ListByPeriod(ctx context.Context, exec sqlx.ExtContext, periodID, studentCode string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range s.assignments {
		if s.sections[a.SectionCourseID].PeriodID != periodID {
			continue
		}
		if studentCode != "" && !strings.EqualFold(a.StudentCode, studentCode) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s storeAssignments) LockStudents(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) error {
	ids := append([]string(nil), studentIDs...)
	sort.Strings(ids)
	s.studentLocks = append(s.studentLocks, ids)
	return nil
}

func (s storeAssignments) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) (bool, error) {
	return s.holds(studentID, sectionCourseID), nil
}

func (s storeAssignments) CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error {
	if s.createBatchErr != nil {
		return s.createBatchErr
	}
	for _, a := range assignments {
		if !s.holds(a.StudentID, a.SectionCourseID) {
			s.assign(a.StudentID, a.SectionCourseID)
		}
	}
	return nil
}

func (s storeAssignments) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) error {
	for i, a := range s.assignments {
		if a.StudentID == studentID && a.SectionCourseID == sectionCourseID {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type storeAudits struct{ *levelingStore }

func (s storeAudits) Create(ctx context.Context, exec sqlx.ExtContext, audit *models.ReassignmentAudit) error {
	audit.ID = fmt.Sprintf("audit-%d", len(s.audits)+1)
	s.audits = append(s.audits, *audit)
	return nil
}

func (s storeAudits) ListByStudent(ctx context.Context, studentID string) ([]models.ReassignmentAudit, error) {
	var out []models.ReassignmentAudit
	for i := len(s.audits) - 1; i >= 0; i-- {
		if s.audits[i].StudentID == studentID {
			out = append(out, s.audits[i])
		}
	}
	return out, nil
}

type conflictInvalidatorStub struct {
	invalidations int
}

func (c *conflictInvalidatorStub) InvalidateConflicts(ctx context.Context) {
	c.invalidations++
}
