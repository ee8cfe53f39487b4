package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leveling-api/internal/models"
)

// PeriodRepository reads academic periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

const periodColumns = `id, code, name, status, starts_at, ends_at, created_at, updated_at`

// FindByID returns a period by id.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE id = $1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindActive returns the single ACTIVE period.
func (r *PeriodRepository) FindActive(ctx context.Context) (*models.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM periods WHERE status = $1 ORDER BY starts_at DESC NULLS LAST LIMIT 1`
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, models.PeriodStatusActive); err != nil {
		return nil, err
	}
	return &period, nil
}
