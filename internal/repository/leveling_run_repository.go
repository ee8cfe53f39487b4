package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leveling-api/internal/models"
)

// LevelingRunRepository persists leveling runs.
type LevelingRunRepository struct {
	db *sqlx.DB
}

// NewLevelingRunRepository constructs the repository.
func NewLevelingRunRepository(db *sqlx.DB) *LevelingRunRepository {
	return &LevelingRunRepository{db: db}
}

func (r *LevelingRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const levelingRunColumns = `id, period_id, status, config, created_at, updated_at`

// FindByID loads a run.
func (r *LevelingRunRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LevelingRun, error) {
	query := `SELECT ` + levelingRunColumns + ` FROM leveling_runs WHERE id = $1`
	var run models.LevelingRun
	if err := sqlx.GetContext(ctx, r.exec(exec), &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateStatus moves a run to the given status.
func (r *LevelingRunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RunStatus) error {
	const query = `UPDATE leveling_runs SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update leveling run status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
