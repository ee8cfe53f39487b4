package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leveling-api/internal/models"
)

// ReassignmentRepository stores the insert-only reassignment audit trail.
type ReassignmentRepository struct {
	db *sqlx.DB
}

// NewReassignmentRepository constructs the repository.
func NewReassignmentRepository(db *sqlx.DB) *ReassignmentRepository {
	return &ReassignmentRepository{db: db}
}

func (r *ReassignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create appends an audit record.
func (r *ReassignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, audit *models.ReassignmentAudit) error {
	if audit == nil {
		return fmt.Errorf("reassignment audit is nil")
	}
	if audit.ID == "" {
		audit.ID = uuid.NewString()
	}
	if audit.ChangedAt.IsZero() {
		audit.ChangedAt = time.Now().UTC()
	}
	const query = `INSERT INTO section_course_reassignments (id, student_id, from_section_course_id, to_section_course_id, reason, changed_by, changed_at, over_capacity)
VALUES (:id, :student_id, :from_section_course_id, :to_section_course_id, :reason, :changed_by, :changed_at, :over_capacity)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, audit); err != nil {
		return fmt.Errorf("insert reassignment audit: %w", err)
	}
	return nil
}

// ListByStudent returns the audit trail of a student, newest first.
func (r *ReassignmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ReassignmentAudit, error) {
	const query = `SELECT id, student_id, from_section_course_id, to_section_course_id, reason, changed_by, changed_at, over_capacity
FROM section_course_reassignments WHERE student_id = $1 ORDER BY changed_at DESC, id`
	var audits []models.ReassignmentAudit
	if err := r.db.SelectContext(ctx, &audits, query, studentID); err != nil {
		return nil, fmt.Errorf("list reassignments: %w", err)
	}
	return audits, nil
}
