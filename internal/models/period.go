package models

import "time"

// PeriodStatus captures the lifecycle of an academic period.
type PeriodStatus string

const (
	PeriodStatusActive   PeriodStatus = "ACTIVE"
	PeriodStatusInactive PeriodStatus = "INACTIVE"
	PeriodStatusClosed   PeriodStatus = "CLOSED"
)

// Period identifies an academic term. Only one period is ACTIVE at a time.
type Period struct {
	ID        string       `db:"id" json:"id"`
	Code      string       `db:"code" json:"code"`
	Name      string       `db:"name" json:"name"`
	Status    PeriodStatus `db:"status" json:"status"`
	StartsAt  *time.Time   `db:"starts_at" json:"startsAt,omitempty"`
	EndsAt    *time.Time   `db:"ends_at" json:"endsAt,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time    `db:"updated_at" json:"updatedAt"`
}
