package models

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus enumerates the leveling run lifecycle.
type RunStatus string

const (
	RunStatusStructured   RunStatus = "STRUCTURED"
	RunStatusReady        RunStatus = "READY"
	RunStatusMatriculated RunStatus = "MATRICULATED"
	RunStatusArchived     RunStatus = "ARCHIVED"
)

var runStatusRank = map[RunStatus]int{
	RunStatusStructured:   1,
	RunStatusReady:        2,
	RunStatusMatriculated: 3,
	RunStatusArchived:     4,
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s RunStatus) CanAdvanceTo(next RunStatus) bool {
	from, ok := runStatusRank[s]
	if !ok {
		return false
	}
	to, ok := runStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Matriculable reports whether the planner may operate on a run in this status.
func (s RunStatus) Matriculable() bool {
	switch s {
	case RunStatusStructured, RunStatusReady, RunStatusMatriculated:
		return true
	default:
		return false
	}
}

// LevelingRun is one enrollment campaign scoped to a period.
type LevelingRun struct {
	ID        string         `db:"id" json:"id"`
	PeriodID  string         `db:"period_id" json:"periodId"`
	Status    RunStatus      `db:"status" json:"status"`
	Config    types.JSONText `db:"config" json:"config"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// RunConfig holds the default capacities a run was structured with.
type RunConfig struct {
	InitialCapacity  int `json:"initialCapacity"`
	MaxExtraCapacity int `json:"maxExtraCapacity"`
}

// DecodeConfig parses the stored run configuration. An empty column yields the zero config.
func (r LevelingRun) DecodeConfig() (RunConfig, error) {
	var cfg RunConfig
	if len(r.Config) == 0 {
		return cfg, nil
	}
	if err := r.Config.Unmarshal(&cfg); err != nil {
		return RunConfig{}, fmt.Errorf("decode run config: %w", err)
	}
	return cfg, nil
}
