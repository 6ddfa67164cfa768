package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/storage"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/validator"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

// ConfigService manages source configs and exposes the audit trail.
type ConfigService struct {
	configs storage.SourceConfigRepo
	runs    storage.ImportRunRepo
}

// NewConfigService creates the config management service.
func NewConfigService(configs storage.SourceConfigRepo, runs storage.ImportRunRepo) *ConfigService {
	return &ConfigService{configs: configs, runs: runs}
}

// CreateConfig validates and persists a new source config.
func (s *ConfigService) CreateConfig(ctx context.Context, cfg *model.SourceConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.LeadType == "" {
		cfg.LeadType = "both"
	}
	if cfg.LastImportStatus == "" {
		cfg.LastImportStatus = model.ImportStatusNever
	}

	if err := validator.Validate(cfg); err != nil {
		return apperrors.NewFatal(err, "invalid source config")
	}

	if err := s.configs.Save(ctx, cfg); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Created source config",
		zap.String("config_id", cfg.ID),
		zap.String("company_id", cfg.CompanyID))
	return nil
}

// UpdateConfig validates and persists changes to an existing config.
func (s *ConfigService) UpdateConfig(ctx context.Context, cfg *model.SourceConfig) error {
	existing, err := s.configs.FindByID(ctx, cfg.ID)
	if err != nil {
		return err
	}
	// Ownership never moves between tenants.
	cfg.CompanyID = existing.CompanyID
	cfg.CreatedAt = existing.CreatedAt

	if err := validator.Validate(cfg); err != nil {
		return apperrors.NewFatal(err, "invalid source config")
	}

	if err := s.configs.Save(ctx, cfg); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Updated source config", zap.String("config_id", cfg.ID))
	return nil
}

// GetConfig fetches one config.
func (s *ConfigService) GetConfig(ctx context.Context, id string) (*model.SourceConfig, error) {
	return s.configs.FindByID(ctx, id)
}

// ListConfigs lists a tenant's configs.
func (s *ConfigService) ListConfigs(ctx context.Context, companyID string) ([]model.SourceConfig, error) {
	return s.configs.FindByCompanyID(ctx, companyID)
}

// DeleteConfig removes a config.
func (s *ConfigService) DeleteConfig(ctx context.Context, id string) error {
	if err := s.configs.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Deleted source config", zap.String("config_id", id))
	return nil
}

// ListRuns returns the most recent audit records for a config.
func (s *ConfigService) ListRuns(ctx context.Context, configID string, limit int) ([]model.ImportRun, error) {
	return s.runs.FindByConfigID(ctx, configID, limit)
}
