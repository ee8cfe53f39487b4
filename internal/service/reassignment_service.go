package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/leveling-api/internal/dto"
	"github.com/noah-isme/leveling-api/internal/engine"
	"github.com/noah-isme/leveling-api/internal/models"
	appErrors "github.com/noah-isme/leveling-api/pkg/errors"
)

const (
	reassignOutcomeMoved    = "moved"
	reassignOutcomeNoop     = "noop"
	reassignOutcomeConflict = "conflict"
	reassignOutcomeCapacity = "capacity"
)

type reassignmentAuditRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, audit *models.ReassignmentAudit) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ReassignmentAudit, error)
}

// ReassignmentService moves students between parallel section-courses.
type ReassignmentService struct {
	periods   periodReader
	demands   demandRepository
	audits    reassignmentAuditRepository
	loader    snapshotLoader
	tx        txProvider
	cache     conflictInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReassignmentService wires reassignment dependencies.
func NewReassignmentService(
	periods periodReader,
	demands demandRepository,
	audits reassignmentAuditRepository,
	sections sectionCourseRepository,
	blocks scheduleBlockReader,
	assignments assignmentRepository,
	tx txProvider,
	cache conflictInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReassignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReassignmentService{
		periods:   periods,
		demands:   demands,
		audits:    audits,
		loader:    snapshotLoader{sections: sections, blocks: blocks, assignments: assignments, metrics: metrics},
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Options lists the parallel section-courses the student could move to from the given one.
func (s *ReassignmentService) Options(ctx context.Context, studentID, fromSectionCourseID string) ([]engine.ReassignmentOption, error) {
	if studentID == "" || fromSectionCourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and sectionCourseId are required")
	}
	from, err := s.findSection(ctx, nil, fromSectionCourseID)
	if err != nil {
		return nil, err
	}
	held, err := s.loader.assignments.Exists(ctx, nil, studentID, from.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !held {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to the source section-course")
	}

	scope, err := periodScope(ctx, s.periods, from.PeriodID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.loader.sectionsWithBlocks(ctx, nil, models.SectionCourseFilter{
		PeriodID:     from.PeriodID,
		FacultyGroup: from.FacultyGroup,
		CampusName:   from.CampusName,
		CourseID:     from.CourseID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate section courses")
	}
	ix, _, err := s.loader.studentIndex(ctx, nil, scope, []string{studentID}, candidates)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedule")
	}
	return engine.EvaluateOptions(ix, studentID, *from, candidates), nil
}

// Reassign moves the student in one transaction. Schedule conflicts always reject the move while
// an over-capacity destination requires explicit confirmation.
func (s *ReassignmentService) Reassign(ctx context.Context, req dto.ReassignRequest, actorID string) (result *dto.ReassignmentResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	var outcome string
	defer func() {
		if outcome != "" {
			s.metrics.RecordReassignment(outcome)
		}
	}()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.loader.sections.Lock(ctx, tx, models.SectionCourseFilter{
		IDs: []string{req.FromSectionCourseID, req.ToSectionCourseID},
	}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section courses")
		return nil, err
	}
	if err = s.loader.assignments.LockStudents(ctx, tx, []string{req.StudentID}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
		return nil, err
	}

	inDestination, err := s.loader.assignments.Exists(ctx, tx, req.StudentID, req.ToSectionCourseID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
		return nil, err
	}
	if inDestination {
		if err = tx.Commit(); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reassignment")
			return nil, err
		}
		outcome = reassignOutcomeNoop
		return &dto.ReassignmentResult{
			StudentID:           req.StudentID,
			FromSectionCourseID: req.FromSectionCourseID,
			ToSectionCourseID:   req.ToSectionCourseID,
			NoOp:                true,
		}, nil
	}

	inSource, err := s.loader.assignments.Exists(ctx, tx, req.StudentID, req.FromSectionCourseID)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
		return nil, err
	}
	if !inSource {
		err = appErrors.Clone(appErrors.ErrValidation, "student is not assigned to the source section-course")
		return nil, err
	}

	from, err := s.findSection(ctx, tx, req.FromSectionCourseID)
	if err != nil {
		return nil, err
	}
	to, err := s.findSection(ctx, tx, req.ToSectionCourseID)
	if err != nil {
		return nil, err
	}
	if !engine.IsValidDestination(*from, *to) {
		err = appErrors.Clone(appErrors.ErrValidation, "destination is not a parallel section-course of the source")
		return nil, err
	}

	scope, err := periodScope(ctx, s.periods, from.PeriodID)
	if err != nil {
		return nil, err
	}
	sections := []models.SectionCourse{*from, *to}
	if err = s.loader.attachBlocks(ctx, tx, sections); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule blocks")
		return nil, err
	}
	ix, _, err := s.loader.studentIndex(ctx, tx, scope, []string{req.StudentID}, sections)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedule")
		return nil, err
	}

	option := engine.EvaluateDestination(ix, req.StudentID, sections[0], sections[1])
	if option.CreatesConflict {
		outcome = reassignOutcomeConflict
		err = appErrors.Clone(appErrors.ErrScheduleConflict, "destination overlaps the student's current schedule")
		return nil, err
	}
	if option.OverCapacity && !req.ConfirmOverCapacity {
		outcome = reassignOutcomeCapacity
		err = appErrors.Clone(appErrors.ErrCapacityExceeded, "destination is over capacity, confirm to proceed")
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.loader.assignments.Delete(ctx, tx, req.StudentID, from.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove source assignment")
		return nil, err
	}
	if err = s.loader.assignments.CreateBatch(ctx, tx, []models.Assignment{{
		SectionCourseID: to.ID,
		StudentID:       req.StudentID,
		CourseID:        to.CourseID,
		CreatedAt:       now,
	}}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create destination assignment")
		return nil, err
	}
	if err = s.demands.Repoint(ctx, tx, req.StudentID, from.ID, to.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to repoint demand")
		return nil, err
	}
	audit := &models.ReassignmentAudit{
		StudentID:           req.StudentID,
		FromSectionCourseID: from.ID,
		ToSectionCourseID:   to.ID,
		Reason:              req.Reason,
		ChangedBy:           actorID,
		ChangedAt:           now,
		OverCapacity:        option.OverCapacity,
	}
	if err = s.audits.Create(ctx, tx, audit); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record reassignment")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reassignment")
		return nil, err
	}
	outcome = reassignOutcomeMoved

	if s.cache != nil {
		s.cache.InvalidateConflicts(ctx)
	}
	s.logger.Info("student reassigned",
		zap.String("student_id", req.StudentID),
		zap.String("from_section_course_id", from.ID),
		zap.String("to_section_course_id", to.ID),
		zap.Bool("over_capacity", option.OverCapacity),
		zap.String("changed_by", actorID),
	)

	return &dto.ReassignmentResult{
		StudentID:           req.StudentID,
		FromSectionCourseID: from.ID,
		ToSectionCourseID:   to.ID,
		OverCapacity:        option.OverCapacity,
		Destination:         &option,
		Audit:               audit,
	}, nil
}

// History lists the reassignments recorded for a student, newest first.
func (s *ReassignmentService) History(ctx context.Context, studentID string) ([]models.ReassignmentAudit, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	audits, err := s.audits.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reassignment history")
	}
	if audits == nil {
		audits = []models.ReassignmentAudit{}
	}
	return audits, nil
}

func (s *ReassignmentService) findSection(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionCourse, error) {
	sc, err := s.loader.sections.FindByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section-course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section-course")
	}
	return sc, nil
}
