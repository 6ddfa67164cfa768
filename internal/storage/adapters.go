package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
)

// SourceConfigRepoAdapter adapts the PostgresRepo to the SourceConfigRepo interface
type SourceConfigRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSourceConfigRepoAdapter creates a new source config repository adapter
func NewSourceConfigRepoAdapter(postgres *PostgresRepo) SourceConfigRepo {
	return &SourceConfigRepoAdapter{postgres: postgres}
}

// FindByID finds a source config by ID
func (a *SourceConfigRepoAdapter) FindByID(ctx context.Context, id string) (*model.SourceConfig, error) {
	return a.postgres.FindSourceConfigByID(ctx, id)
}

// FindByCompanyID lists a tenant's source configs
func (a *SourceConfigRepoAdapter) FindByCompanyID(ctx context.Context, companyID string) ([]model.SourceConfig, error) {
	return a.postgres.FindSourceConfigsByCompanyID(ctx, companyID)
}

// DistinctCompanyIDs lists every tenant owning a config
func (a *SourceConfigRepoAdapter) DistinctCompanyIDs(ctx context.Context) ([]string, error) {
	return a.postgres.DistinctCompanyIDs(ctx)
}

// UpdateHealth writes the last-import health fields
func (a *SourceConfigRepoAdapter) UpdateHealth(ctx context.Context, id string, patch model.ImportHealthPatch) error {
	return a.postgres.UpdateSourceConfigHealth(ctx, id, patch)
}

// Save creates or updates a source config
func (a *SourceConfigRepoAdapter) Save(ctx context.Context, cfg *model.SourceConfig) error {
	return a.postgres.SaveSourceConfig(ctx, cfg)
}

// Delete removes a source config
func (a *SourceConfigRepoAdapter) Delete(ctx context.Context, id string) error {
	return a.postgres.DeleteSourceConfig(ctx, id)
}

// LeadRepoAdapter adapts the PostgresRepo to the LeadRepo interface
type LeadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewLeadRepoAdapter creates a new lead repository adapter
func NewLeadRepoAdapter(postgres *PostgresRepo) LeadRepo {
	return &LeadRepoAdapter{postgres: postgres}
}

// FindByPhone finds a lead by normalized phone within the tenant
func (a *LeadRepoAdapter) FindByPhone(ctx context.Context, phoneNumber string) (*model.Lead, error) {
	return a.postgres.FindLeadByPhone(ctx, phoneNumber)
}

// Save inserts a new lead
func (a *LeadRepoAdapter) Save(ctx context.Context, lead *model.Lead) error {
	return a.postgres.SaveLead(ctx, lead)
}

// Update applies changes to an existing lead
func (a *LeadRepoAdapter) Update(ctx context.Context, lead *model.Lead) error {
	return a.postgres.UpdateLead(ctx, lead)
}

// CampaignRepoAdapter adapts the PostgresRepo to the CampaignRepo interface
type CampaignRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCampaignRepoAdapter creates a new campaign repository adapter
func NewCampaignRepoAdapter(postgres *PostgresRepo) CampaignRepo {
	return &CampaignRepoAdapter{postgres: postgres}
}

// FindByID finds a campaign by ID within the tenant
func (a *CampaignRepoAdapter) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	return a.postgres.FindCampaignByID(ctx, id)
}

// AgentConfigRepoAdapter adapts the PostgresRepo to the AgentConfigRepo interface
type AgentConfigRepoAdapter struct {
	postgres *PostgresRepo
}

// NewAgentConfigRepoAdapter creates a new agent config repository adapter
func NewAgentConfigRepoAdapter(postgres *PostgresRepo) AgentConfigRepo {
	return &AgentConfigRepoAdapter{postgres: postgres}
}

// FindByID finds an agent config by ID within the tenant
func (a *AgentConfigRepoAdapter) FindByID(ctx context.Context, id string) (*model.AgentConfig, error) {
	return a.postgres.FindAgentConfigByID(ctx, id)
}

// FindByCompanyID lists a tenant's agent configs
func (a *AgentConfigRepoAdapter) FindByCompanyID(ctx context.Context, companyID string) ([]model.AgentConfig, error) {
	return a.postgres.FindAgentConfigsByCompanyID(ctx, companyID)
}

// ImportRunRepoAdapter adapts the PostgresRepo to the ImportRunRepo interface
type ImportRunRepoAdapter struct {
	postgres *PostgresRepo
}

// NewImportRunRepoAdapter creates a new import run repository adapter
func NewImportRunRepoAdapter(postgres *PostgresRepo) ImportRunRepo {
	return &ImportRunRepoAdapter{postgres: postgres}
}

// Save appends one audit record
func (a *ImportRunRepoAdapter) Save(ctx context.Context, run *model.ImportRun) error {
	return a.postgres.SaveImportRun(ctx, run)
}

// FindByConfigID lists the most recent runs for a config
func (a *ImportRunRepoAdapter) FindByConfigID(ctx context.Context, configID string, limit int) ([]model.ImportRun, error) {
	return a.postgres.FindImportRunsByConfigID(ctx, configID, limit)
}
