package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Campaign groups imported leads and supplies per-field defaults for the
// lead-info fallback chain.
type Campaign struct {
	ID        string `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	Name      string `json:"name" gorm:"column:name" validate:"required"`

	// Preferred outbound agent for leads imported into this campaign.
	PreferredAgentConfigID string `json:"preferred_agent_config_id,omitempty" gorm:"column:preferred_agent_config_id"`

	// Lead-info defaults, consulted after the explicit value from the source.
	DefaultObjectives string `json:"default_objectives,omitempty" gorm:"column:default_objectives"`
	ImplicitDesires   string `json:"implicit_desires,omitempty" gorm:"column:implicit_desires"`
	HookText          string `json:"hook_text,omitempty" gorm:"column:hook_text"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Campaign model, respecting the Namer.
func (Campaign) TableName(namer schema.Namer) string {
	return namer.TableName("campaigns")
}
