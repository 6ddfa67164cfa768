package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Import run status values recorded on a SourceConfig and its ImportRuns.
const (
	ImportStatusNever   = "never"
	ImportStatusSuccess = "success"
	ImportStatusPartial = "partial"
	ImportStatusError   = "error"
)

// SourceConfig represents one tenant's connection to an external lead API,
// including fetch filters, polling settings and the health of the last run.
type SourceConfig struct {
	ID         string `json:"id" gorm:"primaryKey;type:text"`
	CompanyID  string `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	ConfigName string `json:"config_name" gorm:"column:config_name" validate:"required"`

	// Connection
	BaseURL string `json:"base_url" gorm:"column:base_url" validate:"required,url"`
	APIKey  string `json:"-" gorm:"column:api_key" validate:"required,min=10"` // opaque credential, never serialized

	// Fetch filters
	LeadType       string `json:"lead_type" gorm:"column:lead_type;default:both" validate:"omitempty,oneof=crm marketing both"`
	SourceFilter   string `json:"source_filter,omitempty" gorm:"column:source_filter"`
	CampaignFilter string `json:"campaign_filter,omitempty" gorm:"column:campaign_filter"`
	DaysFilter     string `json:"days_filter,omitempty" gorm:"column:days_filter"` // e.g. "7", "30", "all"

	// Routing
	TargetCampaignID string `json:"target_campaign_id,omitempty" gorm:"column:target_campaign_id"`

	// Polling
	PollingEnabled         bool `json:"polling_enabled" gorm:"column:polling_enabled;default:false"`
	PollingIntervalMinutes int  `json:"polling_interval_minutes" gorm:"column:polling_interval_minutes;default:5" validate:"gte=1"`
	IsActive               bool `json:"is_active" gorm:"column:is_active;default:true"`

	// Import limits. Zero means unlimited / use the service default.
	MaxLeadsPerImport   int `json:"max_leads_per_import,omitempty" gorm:"column:max_leads_per_import"`
	ContactDelayMinutes int `json:"contact_delay_minutes,omitempty" gorm:"column:contact_delay_minutes"`

	// Health of the last run. Mutated only by the import orchestrator.
	LastImportAt           *time.Time `json:"last_import_at,omitempty" gorm:"column:last_import_at"`
	LastImportStatus       string     `json:"last_import_status,omitempty" gorm:"column:last_import_status;default:never"`
	LastImportLeadsCount   int        `json:"last_import_leads_count,omitempty" gorm:"column:last_import_leads_count"`
	LastImportErrorMessage string     `json:"last_import_error_message,omitempty" gorm:"column:last_import_error_message"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the SourceConfig model, respecting the Namer.
func (SourceConfig) TableName(namer schema.Namer) string {
	return namer.TableName("source_configs")
}

// EligibleForPolling reports whether the config qualifies for recurring execution.
func (c *SourceConfig) EligibleForPolling() bool {
	return c.IsActive && c.PollingEnabled
}

// ImportHealthPatch carries the health fields written back to a SourceConfig
// after every run, including fatal ones.
type ImportHealthPatch struct {
	LastImportAt           time.Time
	LastImportStatus       string
	LastImportLeadsCount   int
	LastImportErrorMessage string
}
