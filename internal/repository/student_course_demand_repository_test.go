package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/leveling-api/internal/models"
)

var demandColumns = []string{"id", "run_id", "student_id", "student_code", "student_name", "course_id", "course_name",
	"faculty_group", "campus_name", "is_required", "source_modality", "exam_date", "section_course_id", "assigned_at"}

func TestStudentCourseDemandRepositoryListPending(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentCourseDemandRepository(db)

	rows := sqlmock.NewRows(demandColumns).
		AddRow("d1", "run-1", "s1", "2025001", "Ana", "mat", "MATEMATICA", "INGENIERIA", "LIMA", true, "VIRTUAL", nil, nil, nil).
		AddRow("d2", "run-1", "s2", "2025002", "Luis", "mat", "MATEMATICA", "INGENIERIA", "LIMA", true, nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.run_id = $1 AND d.section_course_id IS NULL AND d.faculty_group = $2 AND d.campus_name = $3")).
		WithArgs("run-1", "INGENIERIA", "LIMA").
		WillReturnRows(rows)

	demands, err := repo.ListPending(context.Background(), nil, models.DemandFilter{RunID: "run-1", FacultyGroup: "INGENIERIA", CampusName: "LIMA"})
	require.NoError(t, err)
	require.Len(t, demands, 2)
	require.NotNil(t, demands[0].SourceModality)
	assert.Equal(t, models.ModalityVirtual, *demands[0].SourceModality)
	assert.Nil(t, demands[1].SourceModality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCourseDemandRepositoryListPendingWholeRun(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentCourseDemandRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.run_id = $1 AND d.section_course_id IS NULL\nORDER BY c.name, st.code, d.id")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(demandColumns))

	demands, err := repo.ListPending(context.Background(), nil, models.DemandFilter{RunID: "run-1"})
	require.NoError(t, err)
	assert.Empty(t, demands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCourseDemandRepositoryMarkAssigned(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentCourseDemandRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leveling_run_demands SET section_course_id = $1, assigned_at = $2 WHERE id = $3 AND section_course_id IS NULL")).
		WithArgs("sc-1", at, "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkAssigned(context.Background(), nil, "d1", "sc-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCourseDemandRepositoryRepoint(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewStudentCourseDemandRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leveling_run_demands SET section_course_id = $1 WHERE student_id = $2 AND section_course_id = $3")).
		WithArgs("sc-2", "s1", "sc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Repoint(context.Background(), nil, "s1", "sc-1", "sc-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
