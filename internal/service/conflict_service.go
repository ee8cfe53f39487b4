package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/leveling-api/internal/dto"
	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
)

type conflictReportCache interface {
	Report(ctx context.Context, key string) ([]dto.ConflictView, bool)
	StoreReport(ctx context.Context, key string, views []dto.ConflictView)
}

// ConflictService reports schedule conflicts among students' current assignments.
type ConflictService struct {
	periods periodReader
	loader  snapshotLoader
	cache   conflictReportCache
	metrics *MetricsService
	logger  *zap.Logger
}

// NewConflictService constructs the conflict report service. cache may be nil.
func NewConflictService(
	periods periodReader,
	sections sectionCourseRepository,
	blocks scheduleBlockReader,
	assignments assignmentRepository,
	cache conflictReportCache,
	metrics *MetricsService,
	logger *zap.Logger,
) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		periods: periods,
		loader:  snapshotLoader{sections: sections, blocks: blocks, assignments: assignments, metrics: metrics},
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns the conflicts of the requested period (the active one by default) matching the filters.
func (s *ConflictService) List(ctx context.Context, query dto.ConflictQuery) ([]dto.ConflictView, error) {
	period, err := s.resolvePeriod(ctx, query.PeriodID)
	if err != nil {
		return nil, err
	}
	query.PeriodID = period.ID

	key := conflictReportKey(query)
	if s.cache != nil {
		if cached, hit := s.cache.Report(ctx, key); hit {
			return cached, nil
		}
	}

	start := time.Now()
	assignments, err := s.loader.assignments.ListByPeriod(ctx, nil, period.ID, query.StudentCode)
	s.metrics.ObserveDBQuery("assignments.list_by_period", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	sections, err := s.loader.withAssignedSections(ctx, nil, nil, assignments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section courses")
	}

	ix := engine.NewScheduleIndex(engine.ScopeFromPeriod(*period), sections, assignments)
	pairs := engine.FindConflicts(ix, nil)

	views := buildConflictViews(pairs, sections, assignments, query)
	s.metrics.SetConflictsFound("report", len(views))

	if s.cache != nil {
		s.cache.StoreReport(ctx, key, views)
	}
	return views, nil
}

func (s *ConflictService) resolvePeriod(ctx context.Context, periodID string) (*models.Period, error) {
	var (
		period *models.Period
		err    error
	)
	if periodID != "" {
		period, err = s.periods.FindByID(ctx, periodID)
	} else {
		period, err = s.periods.FindActive(ctx)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// conflictReportKey identifies a report inside the conflict cache namespace.
func conflictReportKey(q dto.ConflictQuery) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		q.PeriodID, q.FacultyGroup, q.CampusName, strings.ToLower(q.CourseName), q.StudentCode)
}

func buildConflictViews(pairs []engine.ConflictPair, sections []models.SectionCourse, assignments []models.Assignment, q dto.ConflictQuery) []dto.ConflictView {
	byID := make(map[string]models.SectionCourse, len(sections))
	for _, sc := range sections {
		byID[sc.ID] = sc
	}
	students := make(map[string]models.Assignment, len(assignments))
	for _, a := range assignments {
		if _, ok := students[a.StudentID]; !ok {
			students[a.StudentID] = a
		}
	}

	views := make([]dto.ConflictView, 0, len(pairs))
	for _, pair := range pairs {
		a, b := byID[pair.BlockA.SectionCourseID], byID[pair.BlockB.SectionCourseID]
		if !matchesConflictFilter(a, q) && !matchesConflictFilter(b, q) {
			continue
		}
		student := students[pair.StudentID]
		views = append(views, dto.ConflictView{
			StudentID:   pair.StudentID,
			StudentCode: student.StudentCode,
			StudentName: student.StudentName,
			DayOfWeek:   pair.BlockA.DayOfWeek,
			BlockA:      conflictBlock(pair.BlockA, a),
			BlockB:      conflictBlock(pair.BlockB, b),
		})
	}
	return views
}

func matchesConflictFilter(sc models.SectionCourse, q dto.ConflictQuery) bool {
	if q.FacultyGroup != "" && sc.FacultyGroup != q.FacultyGroup {
		return false
	}
	if q.CampusName != "" && sc.CampusName != q.CampusName {
		return false
	}
	if q.CourseName != "" && !strings.Contains(strings.ToLower(sc.CourseName), strings.ToLower(q.CourseName)) {
		return false
	}
	return true
}

func conflictBlock(interval engine.OccupiedInterval, sc models.SectionCourse) dto.ConflictBlock {
	return dto.ConflictBlock{
		BlockID:         interval.BlockID,
		SectionCourseID: interval.SectionCourseID,
		SectionCode:     sc.SectionCode,
		CourseName:      sc.CourseName,
		FacultyGroup:    sc.FacultyGroup,
		CampusName:      sc.CampusName,
		Modality:        string(sc.Modality),
		StartTime:       formatMinute(interval.StartMinute),
		EndTime:         formatMinute(interval.EndMinute),
		StartDate:       interval.StartDate,
		EndDate:         interval.EndDate,
	}
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
