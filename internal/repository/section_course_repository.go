package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/leveling-api/internal/models"
)

// SectionCourseRepository reads section-courses flattened with section, course and classroom data.
type SectionCourseRepository struct {
	db *sqlx.DB
}

// NewSectionCourseRepository constructs the repository.
func NewSectionCourseRepository(db *sqlx.DB) *SectionCourseRepository {
	return &SectionCourseRepository{db: db}
}

func (r *SectionCourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const sectionCourseSelect = `SELECT sc.id, sc.section_id, s.period_id, s.code AS section_code, sc.course_id, c.name AS course_name,
       s.faculty_group, s.campus_name, s.modality, s.is_mother_section,
       sc.initial_capacity, sc.max_extra_capacity, sc.classroom_id,
       cr.capacity AS classroom_capacity, cr.status AS classroom_status, sc.teacher_id,
       (SELECT COUNT(*) FROM section_course_students scs WHERE scs.section_course_id = sc.id) AS student_count,
       sc.created_at
FROM section_courses sc
JOIN sections s ON s.id = sc.section_id
JOIN courses c ON c.id = sc.course_id
LEFT JOIN classrooms cr ON cr.id = sc.classroom_id`

func sectionCourseConditions(filter models.SectionCourseFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.PeriodID != "" {
		args = append(args, filter.PeriodID)
		conditions = append(conditions, fmt.Sprintf("s.period_id = $%d", len(args)))
	}
	if filter.FacultyGroup != "" {
		args = append(args, filter.FacultyGroup)
		conditions = append(conditions, fmt.Sprintf("s.faculty_group = $%d", len(args)))
	}
	if filter.CampusName != "" {
		args = append(args, filter.CampusName)
		conditions = append(conditions, fmt.Sprintf("s.campus_name = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("sc.course_id = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("sc.id = ANY($%d)", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns the section-courses matching filter ordered by id. Blocks are not loaded.
func (r *SectionCourseRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]models.SectionCourse, error) {
	clause, args := sectionCourseConditions(filter)
	query := sectionCourseSelect + clause + ` ORDER BY sc.id`
	var sections []models.SectionCourse
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list section courses: %w", err)
	}
	return sections, nil
}

// FindByID loads one section-course.
func (r *SectionCourseRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionCourse, error) {
	query := sectionCourseSelect + ` WHERE sc.id = $1`
	var section models.SectionCourse
	if err := sqlx.GetContext(ctx, r.exec(exec), &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Lock takes row locks on the section-courses matching filter in id order, so concurrent writers
// serialise their capacity checks. It must run inside a transaction.
func (r *SectionCourseRepository) Lock(ctx context.Context, exec sqlx.ExtContext, filter models.SectionCourseFilter) ([]string, error) {
	clause, args := sectionCourseConditions(filter)
	query := `SELECT sc.id FROM section_courses sc JOIN sections s ON s.id = sc.section_id` + clause + ` ORDER BY sc.id FOR UPDATE OF sc`
	var ids []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, args...); err != nil {
		return nil, fmt.Errorf("lock section courses: %w", err)
	}
	return ids, nil
}
