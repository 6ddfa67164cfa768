package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// AgentConfig is a tenant's configured outbound agent. Imported leads are
// always routed to exactly one agent; its defaults are the last link of the
// lead-info fallback chain.
type AgentConfig struct {
	ID        string `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string `json:"company_id" gorm:"column:company_id;index" validate:"required"`

	AgentName   string `json:"agent_name,omitempty" gorm:"column:agent_name"`
	PhoneNumber string `json:"phone_number,omitempty" gorm:"column:phone_number"`

	// Lead-info defaults, consulted when neither the source record nor the
	// campaign supplies a value.
	DefaultObjectives string `json:"default_objectives,omitempty" gorm:"column:default_objectives"`
	DefaultDesires    string `json:"default_desires,omitempty" gorm:"column:default_desires"`
	DefaultHook       string `json:"default_hook,omitempty" gorm:"column:default_hook"`

	CreatedAt time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the AgentConfig model, respecting the Namer.
func (AgentConfig) TableName(namer schema.Namer) string {
	return namer.TableName("agent_configs")
}
