package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leveling-api/internal/models"
)

// StudentCourseDemandRepository reads and settles the demand backlog of a run.
type StudentCourseDemandRepository struct {
	db *sqlx.DB
}

// NewStudentCourseDemandRepository constructs the repository.
func NewStudentCourseDemandRepository(db *sqlx.DB) *StudentCourseDemandRepository {
	return &StudentCourseDemandRepository{db: db}
}

func (r *StudentCourseDemandRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListPending returns the demands of a run that have not been placed yet.
func (r *StudentCourseDemandRepository) ListPending(ctx context.Context, exec sqlx.ExtContext, filter models.DemandFilter) ([]models.StudentCourseDemand, error) {
	conditions := []string{"d.run_id = $1", "d.section_course_id IS NULL"}
	args := []interface{}{filter.RunID}
	if filter.FacultyGroup != "" {
		args = append(args, filter.FacultyGroup)
		conditions = append(conditions, fmt.Sprintf("d.faculty_group = $%d", len(args)))
	}
	if filter.CampusName != "" {
		args = append(args, filter.CampusName)
		conditions = append(conditions, fmt.Sprintf("d.campus_name = $%d", len(args)))
	}

	query := `SELECT d.id, d.run_id, d.student_id, st.code AS student_code, st.full_name AS student_name,
       d.course_id, c.name AS course_name, d.faculty_group, d.campus_name, d.is_required,
       d.source_modality, d.exam_date, d.section_course_id, d.assigned_at
FROM leveling_run_demands d
JOIN students st ON st.id = d.student_id
JOIN courses c ON c.id = d.course_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY c.name, st.code, d.id`

	var demands []models.StudentCourseDemand
	if err := sqlx.SelectContext(ctx, r.exec(exec), &demands, query, args...); err != nil {
		return nil, fmt.Errorf("list pending demands: %w", err)
	}
	return demands, nil
}

// MarkAssigned records the section-course a demand was placed into.
func (r *StudentCourseDemandRepository) MarkAssigned(ctx context.Context, exec sqlx.ExtContext, demandID, sectionCourseID string, at time.Time) error {
	const query = `UPDATE leveling_run_demands SET section_course_id = $1, assigned_at = $2 WHERE id = $3 AND section_course_id IS NULL`
	if _, err := r.exec(exec).ExecContext(ctx, query, sectionCourseID, at, demandID); err != nil {
		return fmt.Errorf("mark demand %s assigned: %w", demandID, err)
	}
	return nil
}

// Repoint moves the settled demands of a student from one section-course to another.
func (r *StudentCourseDemandRepository) Repoint(ctx context.Context, exec sqlx.ExtContext, studentID, fromSectionCourseID, toSectionCourseID string) error {
	const query = `UPDATE leveling_run_demands SET section_course_id = $1 WHERE student_id = $2 AND section_course_id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, toSectionCourseID, studentID, fromSectionCourseID); err != nil {
		return fmt.Errorf("repoint student demands: %w", err)
	}
	return nil
}
