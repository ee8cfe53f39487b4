package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/leveling-api/internal/models"
)

// ScheduleBlockRepository reads the weekly blocks of section-courses.
type ScheduleBlockRepository struct {
	db *sqlx.DB
}

// NewScheduleBlockRepository constructs the repository.
func NewScheduleBlockRepository(db *sqlx.DB) *ScheduleBlockRepository {
	return &ScheduleBlockRepository{db: db}
}

func (r *ScheduleBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListBySectionCourses returns the blocks of the given section-courses.
func (r *ScheduleBlockRepository) ListBySectionCourses(ctx context.Context, exec sqlx.ExtContext, sectionCourseIDs []string) ([]models.ScheduleBlock, error) {
	if len(sectionCourseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, section_course_id, day_of_week, start_time, end_time, start_date, end_date,
       reference_modality, reference_classroom
FROM schedule_blocks WHERE section_course_id = ANY($1)
ORDER BY section_course_id, day_of_week, start_time, id`
	var blocks []models.ScheduleBlock
	if err := sqlx.SelectContext(ctx, r.exec(exec), &blocks, query, pq.Array(sectionCourseIDs)); err != nil {
		return nil, fmt.Errorf("list schedule blocks: %w", err)
	}
	return blocks, nil
}
