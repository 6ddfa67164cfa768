package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
)

// SourceConfigRepo manages external lead source configurations. Lookups that
// span tenants (DistinctCompanyIDs, FindByID) are used by the polling
// scheduler and therefore do not require a tenant in context.
type SourceConfigRepo interface {
	// FindByID fetches a single config. Returns apperrors.ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (*model.SourceConfig, error)
	// FindByCompanyID lists all configs owned by one tenant.
	FindByCompanyID(ctx context.Context, companyID string) ([]model.SourceConfig, error)
	// DistinctCompanyIDs lists every tenant that owns at least one config.
	DistinctCompanyIDs(ctx context.Context) ([]string, error)
	// UpdateHealth writes the last-import health fields without touching the rest.
	UpdateHealth(ctx context.Context, id string, patch model.ImportHealthPatch) error
	// Save creates or fully updates a config.
	Save(ctx context.Context, cfg *model.SourceConfig) error
	// Delete removes a config. Returns apperrors.ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}

// LeadRepo manages tenant leads keyed by (company_id, phone_number).
type LeadRepo interface {
	// FindByPhone looks up a lead by normalized phone. Returns
	// apperrors.ErrNotFound when the tenant has no such lead.
	FindByPhone(ctx context.Context, phoneNumber string) (*model.Lead, error)
	// Save inserts a new lead.
	Save(ctx context.Context, lead *model.Lead) error
	// Update applies changes to an existing lead.
	Update(ctx context.Context, lead *model.Lead) error
}

// CampaignRepo reads campaigns for agent resolution and lead-info defaults.
type CampaignRepo interface {
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
}

// AgentConfigRepo reads tenant outbound agents.
type AgentConfigRepo interface {
	FindByID(ctx context.Context, id string) (*model.AgentConfig, error)
	FindByCompanyID(ctx context.Context, companyID string) ([]model.AgentConfig, error)
}

// ImportRunRepo appends and lists import audit records.
type ImportRunRepo interface {
	Save(ctx context.Context, run *model.ImportRun) error
	// FindByConfigID returns the most recent runs for a config, newest first.
	FindByConfigID(ctx context.Context, configID string, limit int) ([]model.ImportRun, error)
}
