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

func TestPeriodRepositoryFindActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	starts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "code", "name", "status", "starts_at", "ends_at", "created_at", "updated_at"}).
		AddRow("period-1", "2025-I", "Ciclo 2025-I", "ACTIVE", starts, ends, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE status = $1")).
		WithArgs(models.PeriodStatusActive).
		WillReturnRows(rows)

	period, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "period-1", period.ID)
	assert.Equal(t, models.PeriodStatusActive, period.Status)
	require.NotNil(t, period.StartsAt)
	assert.True(t, period.StartsAt.Equal(starts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewPeriodRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
