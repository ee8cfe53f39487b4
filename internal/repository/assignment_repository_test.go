package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/leveling-api/internal/models"
)

var assignmentColumns = []string{"id", "section_course_id", "student_id", "student_code", "student_name", "course_id", "created_at"}

func TestAssignmentRepositoryListByStudents(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows(assignmentColumns).
		AddRow("a1", "sc-1", "s1", "2025001", "Ana", "mat", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.period_id = $1 AND scs.student_id = ANY($2)")).
		WithArgs("period-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	assignments, err := repo.ListByStudents(context.Background(), nil, "period-1", []string{"s1"})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "mat", assignments[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListByPeriodWithStudentCode(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.period_id = $1 AND st.code = $2")).
		WithArgs("period-1", "2025001").
		WillReturnRows(sqlmock.NewRows(assignmentColumns))

	_, err := repo.ListByPeriod(context.Background(), nil, "period-1", "2025001")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryExists(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM section_course_students WHERE student_id = $1 AND section_course_id = $2)")).
		WithArgs("s1", "sc-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), nil, "s1", "sc-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAssignmentRepositoryLockStudents(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext(student_id))")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.LockStudents(context.Background(), nil, []string{"s2", "s1", "s2"}))
	require.NoError(t, repo.LockStudents(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateBatch(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	for _, student := range []string{"s1", "s2"} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO section_course_students (id, section_course_id, student_id, created_at)")).
			WithArgs(sqlmock.AnyArg(), "sc-1", student, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	batch := []models.Assignment{
		{SectionCourseID: "sc-1", StudentID: "s1"},
		{SectionCourseID: "sc-1", StudentID: "s2"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), tx, batch))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, batch[0].ID)
	assert.False(t, batch[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeleteMissing(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM section_course_students WHERE student_id = $1 AND section_course_id = $2")).
		WithArgs("s1", "sc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), nil, "s1", "sc-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
