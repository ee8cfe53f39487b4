package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
)

type levelingRunRepository interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LevelingRun, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RunStatus) error
}

type periodReader interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context) (*models.Period, error)
}

type demandRepository interface {
	ListPending(ctx context.Context, exec sqlx.ExtContext, filter models.DemandFilter) ([]models.StudentCourseDemand, error)
	MarkAssigned(ctx context.Context, exec sqlx.ExtContext, demandID, sectionCourseID string, at time.Time) error
	Repoint(ctx context.Context, exec sqlx.ExtContext, studentID, fromSectionCourseID, toSectionCourseID string) error
}

type sectionCourseRepository interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]models.SectionCourse, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionCourse, error)
	Lock(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]string, error)
}

type scheduleBlockReader interface {
	ListBySectionCourses(ctx context.Context, exec sqlx.ExtContext, sectionCourseIDs []string) ([]models.ScheduleBlock, error)
}

type assignmentRepository interface {
	ListByStudents(ctx context.Context, exec sqlx.ExtContext, periodID string, studentIDs []string) ([]models.Assignment, error)
	ListByPeriod(ctx context.Context, exec sqlx.ExtContext, periodID, studentCode string) ([]models.Assignment, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) (bool, error)
	LockStudents(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type conflictInvalidator interface {
	InvalidateConflicts(ctx context.Context)
}

// snapshotLoader materialises the section-course, block and assignment snapshots the engine works on.
type snapshotLoader struct {
	sections    sectionCourseRepository
	blocks      scheduleBlockReader
	assignments assignmentRepository
	metrics     *MetricsService
}

// attachBlocks loads and attaches the schedule blocks of every section-course in place.
func (l snapshotLoader) attachBlocks(ctx context.Context, exec sqlx.ExtContext, sections []models.SectionCourse) error {
	if len(sections) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sections))
	for _, sc := range sections {
		ids = append(ids, sc.ID)
	}
	start := time.Now()
	blocks, err := l.blocks.ListBySectionCourses(ctx, exec, ids)
	l.metrics.ObserveDBQuery("schedule_blocks.list", time.Since(start))
	if err != nil {
		return err
	}
	byID := make(map[string][]models.ScheduleBlock, len(sections))
	for _, block := range blocks {
		byID[block.SectionCourseID] = append(byID[block.SectionCourseID], block)
	}
	for i := range sections {
		sections[i].Blocks = byID[sections[i].ID]
	}
	return nil
}

// sectionsWithBlocks lists section-courses and attaches their blocks.
func (l snapshotLoader) sectionsWithBlocks(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]models.SectionCourse, error) {
	start := time.Now()
	sections, err := l.sections.List(ctx, exec, filter)
	l.metrics.ObserveDBQuery("section_courses.list", time.Since(start))
	if err != nil {
		return nil, err
	}
	if err := l.attachBlocks(ctx, exec, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// studentIndex builds a schedule index covering every assignment the students hold in the period.
// Section-courses already present in known are reused instead of being reloaded.
func (l snapshotLoader) studentIndex(ctx context.Context, exec sqlx.ExtContext, scope engine.Scope, studentIDs []string, known []models.SectionCourse) (*engine.ScheduleIndex, []models.Assignment, error) {
	var assignments []models.Assignment
	if len(studentIDs) > 0 {
		start := time.Now()
		loaded, err := l.assignments.ListByStudents(ctx, exec, scope.PeriodID, studentIDs)
		l.metrics.ObserveDBQuery("assignments.list_by_students", time.Since(start))
		if err != nil {
			return nil, nil, err
		}
		assignments = loaded
	}

	sections, err := l.withAssignedSections(ctx, exec, known, assignments)
	if err != nil {
		return nil, nil, err
	}
	return engine.NewScheduleIndex(scope, sections, assignments), assignments, nil
}

// withAssignedSections extends known with the section-courses referenced by assignments.
func (l snapshotLoader) withAssignedSections(ctx context.Context, exec sqlx.ExtContext, known []models.SectionCourse, assignments []models.Assignment) ([]models.SectionCourse, error) {
	present := make(map[string]struct{}, len(known))
	for _, sc := range known {
		present[sc.ID] = struct{}{}
	}
	var missing []string
	for _, a := range assignments {
		if _, ok := present[a.SectionCourseID]; ok {
			continue
		}
		present[a.SectionCourseID] = struct{}{}
		missing = append(missing, a.SectionCourseID)
	}
	sections := append([]models.SectionCourse(nil), known...)
	if len(missing) == 0 {
		return sections, nil
	}
	extra, err := l.sectionsWithBlocks(ctx, exec, models.SectionCourseFilter{IDs: missing})
	if err != nil {
		return nil, err
	}
	return append(sections, extra...), nil
}

// periodScope loads the period bounding an index.
func periodScope(ctx context.Context, periods periodReader, periodID string) (engine.Scope, error) {
	period, err := periods.FindByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Scope{}, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return engine.Scope{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return engine.ScopeFromPeriod(*period), nil
}
