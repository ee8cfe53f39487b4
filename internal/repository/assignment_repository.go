package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/leveling-api/internal/models"
)

// AssignmentRepository persists the student to section-course edges.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const assignmentSelect = `SELECT scs.id, scs.section_course_id, scs.student_id, st.code AS student_code,
       st.full_name AS student_name, sc.course_id, scs.created_at
FROM section_course_students scs
JOIN section_courses sc ON sc.id = scs.section_course_id
JOIN sections s ON s.id = sc.section_id
JOIN students st ON st.id = scs.student_id`

// ListByStudents returns the assignments of the given students inside a period.
func (r *AssignmentRepository) ListByStudents(ctx context.Context, exec sqlx.ExtContext, periodID string, studentIDs []string) ([]models.Assignment, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := assignmentSelect + ` WHERE s.period_id = $1 AND scs.student_id = ANY($2) ORDER BY scs.student_id, scs.section_course_id`
	var assignments []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &assignments, query, periodID, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list student assignments: %w", err)
	}
	return assignments, nil
}

// ListByPeriod returns every assignment of a period, optionally restricted to a student code.
func (r *AssignmentRepository) ListByPeriod(ctx context.Context, exec sqlx.ExtContext, periodID, studentCode string) ([]models.Assignment, error) {
	conditions := []string{"s.period_id = $1"}
	args := []interface{}{periodID}
	if studentCode != "" {
		args = append(args, studentCode)
		conditions = append(conditions, fmt.Sprintf("st.code = $%d", len(args)))
	}
	query := assignmentSelect + ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY scs.student_id, scs.section_course_id`
	var assignments []models.Assignment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list period assignments: %w", err)
	}
	return assignments, nil
}

// Exists reports whether the student holds the section-course.
func (r *AssignmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM section_course_students WHERE student_id = $1 AND section_course_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, sectionCourseID); err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return exists, nil
}

// LockStudents takes transaction-scoped advisory locks on the students in id order. Callers must
// hold them before reading a student's schedule for a write, so two transactions placing the same
// student in different section-courses serialise.
func (r *AssignmentRepository) LockStudents(ctx context.Context, exec sqlx.ExtContext, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	ids := slices.Clone(studentIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	const query = `SELECT pg_advisory_xact_lock(hashtext(student_id))
FROM (SELECT unnest($1::text[]) AS student_id ORDER BY 1) AS students`
	if _, err := r.exec(exec).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("lock students: %w", err)
	}
	return nil
}

// CreateBatch inserts assignments. Existing edges are left untouched.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `INSERT INTO section_course_students (id, section_course_id, student_id, created_at)
VALUES (:id, :section_course_id, :student_id, :created_at)
ON CONFLICT (section_course_id, student_id) DO NOTHING`
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		if assignments[i].CreatedAt.IsZero() {
			assignments[i].CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignments[i]); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// Delete removes the student from the section-course.
func (r *AssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionCourseID string) error {
	const query = `DELETE FROM section_course_students WHERE student_id = $1 AND section_course_id = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, studentID, sectionCourseID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
