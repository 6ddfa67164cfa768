package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Run kinds distinguish operator-triggered imports from scheduler ticks.
const (
	RunKindManual    = "manual"
	RunKindScheduled = "scheduled"
)

// ImportRun is the append-only audit record written once per orchestrator
// invocation, successful or not.
type ImportRun struct {
	ID        string `json:"id" gorm:"primaryKey;type:text"`
	ConfigID  string `json:"config_id" gorm:"column:config_id;index" validate:"required"`
	CompanyID string `json:"company_id" gorm:"column:company_id;index" validate:"required"`

	RunKind string `json:"run_kind" gorm:"column:run_kind" validate:"required,oneof=manual scheduled"`
	Status  string `json:"status" gorm:"column:status" validate:"required,oneof=success partial error"`

	LeadsProcessed  int `json:"leads_processed" gorm:"column:leads_processed"`
	LeadsImported   int `json:"leads_imported" gorm:"column:leads_imported"`
	LeadsUpdated    int `json:"leads_updated" gorm:"column:leads_updated"`
	LeadsDuplicated int `json:"leads_duplicated" gorm:"column:leads_duplicated"`
	LeadsErrored    int `json:"leads_errored" gorm:"column:leads_errored"`
	LeadsSkipped    int `json:"leads_skipped" gorm:"column:leads_skipped"`

	ErrorMessage string         `json:"error_message,omitempty" gorm:"column:error_message"`
	ErrorDetails datatypes.JSON `json:"error_details,omitempty" gorm:"type:jsonb;column:error_details"`

	StartedAt   time.Time  `json:"started_at" gorm:"column:started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
	DurationMs  int64      `json:"duration_ms,omitempty" gorm:"column:duration_ms"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the ImportRun model, respecting the Namer.
func (ImportRun) TableName(namer schema.Namer) string {
	return namer.TableName("import_runs")
}
