package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunKindIngest    = "ingest"
	RunKindReconcile = "reconcile"

	RunRunning       = "running"
	RunCompleted     = "completed"
	RunFailed        = "failed"
	RunSkippedLocked = "skipped_lock_busy"
)

// ReconcileRun is the bookkeeping row for one batch run: ingestion or price
// reconciliation. Report carries per-pass counts for operators.
type ReconcileRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       string         `gorm:"index;not null" json:"kind"`
	Status     string         `gorm:"index;not null" json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Cycles     int            `json:"cycles"`
	Report     datatypes.JSON `gorm:"type:jsonb" json:"report,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (ReconcileRun) TableName() string { return "reconcile_runs" }
