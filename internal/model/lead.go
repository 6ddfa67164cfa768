package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Lead status values. A lead's status only ever moves forward; imports never
// regress "converted" back to an earlier state.
const (
	LeadStatusPending   = "pending"
	LeadStatusContacted = "contacted"
	LeadStatusConverted = "converted"
)

// Lead is a tenant contact owned by the persistence layer. The dedup key is
// (company_id, phone_number) with the phone already normalized.
type Lead struct {
	ID          string `json:"id" gorm:"primaryKey;type:text"`
	CompanyID   string `json:"company_id" gorm:"column:company_id;index:idx_leads_company_phone,unique" validate:"required"`
	PhoneNumber string `json:"phone_number" gorm:"column:phone_number;index:idx_leads_company_phone,unique" validate:"required"`

	FirstName string `json:"first_name" gorm:"column:first_name"`
	LastName  string `json:"last_name,omitempty" gorm:"column:last_name"`
	Status    string `json:"status" gorm:"column:status;default:pending"`

	AgentConfigID string `json:"agent_config_id,omitempty" gorm:"column:agent_config_id;index"`
	CampaignID    string `json:"campaign_id,omitempty" gorm:"column:campaign_id"`

	LeadInfo datatypes.JSON `json:"lead_info,omitempty" gorm:"type:jsonb;column:lead_info"`

	ContactSchedule *time.Time `json:"contact_schedule,omitempty" gorm:"column:contact_schedule"`
	ImportedAt      *time.Time `json:"imported_at,omitempty" gorm:"column:imported_at"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Lead model, respecting the Namer.
func (Lead) TableName(namer schema.Namer) string {
	return namer.TableName("leads")
}

// LeadInfo is the free-form qualification payload attached to a lead. Every
// field is optional; an all-empty LeadInfo is never persisted.
type LeadInfo struct {
	Objectives string `json:"objectives,omitempty"`
	Desires    string `json:"desires,omitempty"`
	Hook       string `json:"hook,omitempty"`
	Source     string `json:"source,omitempty"`
}

// HasValue reports whether at least one field is non-empty after trimming.
func (li LeadInfo) HasValue() bool {
	return strings.TrimSpace(li.Objectives) != "" ||
		strings.TrimSpace(li.Desires) != "" ||
		strings.TrimSpace(li.Hook) != "" ||
		strings.TrimSpace(li.Source) != ""
}
