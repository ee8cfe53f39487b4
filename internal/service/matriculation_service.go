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
	matriculationModePreview = "preview"
	matriculationModeCommit  = "commit"
)

// MatriculationConfig tunes the planner.
type MatriculationConfig struct {
	DefaultPolicy string
	LockTimeout   time.Duration
}

// MatriculationService previews and commits incremental matriculations for a leveling run.
type MatriculationService struct {
	runs      levelingRunRepository
	periods   periodReader
	demands   demandRepository
	loader    snapshotLoader
	tx        txProvider
	cache     conflictInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       MatriculationConfig
}

// NewMatriculationService wires matriculation dependencies.
func NewMatriculationService(
	runs levelingRunRepository,
	periods periodReader,
	demands demandRepository,
	sections sectionCourseRepository,
	blocks scheduleBlockReader,
	assignments assignmentRepository,
	tx txProvider,
	cache conflictInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg MatriculationConfig,
) *MatriculationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatriculationService{
		runs:      runs,
		periods:   periods,
		demands:   demands,
		loader:    snapshotLoader{sections: sections, blocks: blocks, assignments: assignments, metrics: metrics},
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Preview simulates a matriculation without taking locks or writing anything.
func (s *MatriculationService) Preview(ctx context.Context, runID string, req dto.MatriculationRequest) (*dto.MatriculationPreview, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.FacultyGroup == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "facultyGroup is required for a preview")
	}
	start := time.Now()

	run, err := s.loadRun(ctx, nil, runID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, nil, run, req, false)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMatriculation(matriculationModePreview, plan.AssignedCount(), unassignedByReason(plan), time.Since(start))
	preview := toPreview(run.ID, req, plan)
	preview.RunDefaults = s.runDefaults(run)
	return &preview, nil
}

// Matriculate plans and commits placements in one transaction. The scope's section-courses are
// locked before the snapshot is re-read so concurrent commits cannot overfill a section.
func (s *MatriculationService) Matriculate(ctx context.Context, runID string, req dto.MatriculationRequest) (result *dto.MatriculationResult, err error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	start := time.Now()

	if s.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	run, err := s.loadRun(ctx, tx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.Matriculable() {
		err = appErrors.Clone(appErrors.ErrNotMatriculable, "leveling run is archived")
		return nil, err
	}

	if _, err = s.loader.sections.Lock(ctx, tx, models.SectionCourseFilter{
		PeriodID:     run.PeriodID,
		FacultyGroup: req.FacultyGroup,
		CampusName:   req.CampusName,
	}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section courses")
		return nil, err
	}

	plan, err := s.plan(ctx, tx, run, req, true)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := make([]models.Assignment, 0, len(plan.Placements))
	for _, placement := range plan.Placements {
		batch = append(batch, models.Assignment{
			SectionCourseID: placement.SectionCourseID,
			StudentID:       placement.StudentID,
			CourseID:        placement.CourseID,
			CreatedAt:       now,
		})
	}
	if err = s.loader.assignments.CreateBatch(ctx, tx, batch); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
		return nil, err
	}
	for _, placement := range plan.Placements {
		if err = s.demands.MarkAssigned(ctx, tx, placement.DemandID, placement.SectionCourseID, now); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle demands")
			return nil, err
		}
	}

	status := run.Status
	if plan.AssignedCount() > 0 && run.Status.CanAdvanceTo(models.RunStatusMatriculated) {
		if err = s.runs.UpdateStatus(ctx, tx, run.ID, models.RunStatusMatriculated); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update run status")
			return nil, err
		}
		status = models.RunStatusMatriculated
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit matriculation")
		return nil, err
	}

	s.logger.Info("matriculation committed",
		zap.String("run_id", run.ID),
		zap.String("faculty_group", req.FacultyGroup),
		zap.String("campus_name", req.CampusName),
		zap.Int("assigned", plan.AssignedCount()),
		zap.Int("unassigned", len(plan.Unassigned)),
	)
	s.metrics.ObserveMatriculation(matriculationModeCommit, plan.AssignedCount(), unassignedByReason(plan), time.Since(start))

	result = &dto.MatriculationResult{
		MatriculationPreview: toPreview(run.ID, req, plan),
		RunStatus:            string(status),
	}
	result.RunDefaults = s.runDefaults(run)
	if plan.AssignedCount() > 0 {
		s.sweep(ctx, run, plan, result)
		if s.cache != nil {
			s.cache.InvalidateConflicts(ctx)
		}
	}
	return result, nil
}

// sweep counts the conflicts of the students touched by a commit. Failures are reported on the
// result and logged but never undo the commit.
func (s *MatriculationService) sweep(ctx context.Context, run *models.LevelingRun, plan *engine.Plan, result *dto.MatriculationResult) {
	students := plan.TouchedStudents()
	scope, err := periodScope(ctx, s.periods, run.PeriodID)
	if err == nil {
		var ix *engine.ScheduleIndex
		ix, _, err = s.loader.studentIndex(ctx, nil, scope, students, nil)
		if err == nil {
			result.ConflictsFoundAfterAssign = len(engine.FindConflicts(ix, students))
			s.metrics.SetConflictsFound("post_commit_sweep", result.ConflictsFoundAfterAssign)
			return
		}
	}
	result.ConflictSweepError = "conflict sweep failed"
	s.logger.Warn("post-commit conflict sweep failed", zap.String("run_id", run.ID), zap.Error(err))
}

// plan builds the placement plan for the request scope. With forUpdate the pending students are
// locked before their schedules are read.
func (s *MatriculationService) plan(ctx context.Context, exec sqlx.ExtContext, run *models.LevelingRun, req dto.MatriculationRequest, forUpdate bool) (*engine.Plan, error) {
	policy, ok := engine.PolicyByName(firstNonEmpty(req.Policy, s.cfg.DefaultPolicy))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown section policy")
	}
	scope, err := periodScope(ctx, s.periods, run.PeriodID)
	if err != nil {
		return nil, err
	}

	sections, err := s.loader.sectionsWithBlocks(ctx, exec, models.SectionCourseFilter{
		PeriodID:     run.PeriodID,
		FacultyGroup: req.FacultyGroup,
		CampusName:   req.CampusName,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section courses")
	}

	demands, err := s.demands.ListPending(ctx, exec, models.DemandFilter{
		RunID:        run.ID,
		FacultyGroup: req.FacultyGroup,
		CampusName:   req.CampusName,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load demands")
	}

	studentIDs := make([]string, 0, len(demands))
	seen := make(map[string]struct{}, len(demands))
	for _, d := range demands {
		if _, ok := seen[d.StudentID]; ok {
			continue
		}
		seen[d.StudentID] = struct{}{}
		studentIDs = append(studentIDs, d.StudentID)
	}
	if forUpdate {
		if err := s.loader.assignments.LockStudents(ctx, exec, studentIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock students")
		}
	}
	ix, assignments, err := s.loader.studentIndex(ctx, exec, scope, studentIDs, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedules")
	}

	plan, err := engine.BuildPlan(engine.PlanInput{
		Run:            *run,
		FacultyGroup:   req.FacultyGroup,
		CampusName:     req.CampusName,
		Demands:        demands,
		SectionCourses: sections,
		Assignments:    assignments,
		Index:          ix,
		Policy:         policy,
	})
	switch {
	case errors.Is(err, engine.ErrRunNotMatriculable):
		return nil, appErrors.Clone(appErrors.ErrNotMatriculable, "leveling run is archived")
	case errors.Is(err, engine.ErrNoReadySections):
		return nil, appErrors.Clone(appErrors.ErrNotMatriculable, "no ready section-courses for the requested scope")
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build plan")
	}
	return plan, nil
}

func (s *MatriculationService) loadRun(ctx context.Context, exec sqlx.ExtContext, runID string) (*models.LevelingRun, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "runId is required")
	}
	run, err := s.runs.FindByID(ctx, exec, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leveling run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leveling run")
	}
	return run, nil
}

// runDefaults reports the capacities the run was structured with. An unreadable config is left out.
func (s *MatriculationService) runDefaults(run *models.LevelingRun) *models.RunConfig {
	cfg, err := run.DecodeConfig()
	if err != nil {
		s.logger.Warn("ignoring unreadable run config", zap.String("run_id", run.ID), zap.Error(err))
		return nil
	}
	return &cfg
}

func (s *MatriculationService) validate(req dto.MatriculationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matriculation request")
	}
	return nil
}

func toPreview(runID string, req dto.MatriculationRequest, plan *engine.Plan) dto.MatriculationPreview {
	placements := plan.Placements
	if placements == nil {
		placements = []engine.Placement{}
	}
	unassigned := plan.Unassigned
	if unassigned == nil {
		unassigned = []engine.Unassigned{}
	}
	return dto.MatriculationPreview{
		RunID:         runID,
		FacultyGroup:  req.FacultyGroup,
		CampusName:    req.CampusName,
		Strategy:      dto.StrategyIncremental,
		Policy:        plan.Policy,
		AssignedCount: plan.AssignedCount(),
		SkippedCount:  plan.Skipped,
		Placements:    placements,
		Unassigned:    unassigned,
		Sections:      plan.Sections,
	}
}

func unassignedByReason(plan *engine.Plan) map[string]int {
	out := make(map[string]int)
	for _, u := range plan.Unassigned {
		out[string(u.Reason)]++
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
