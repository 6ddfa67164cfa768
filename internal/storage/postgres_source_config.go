package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// --- SourceConfig Repository Methods ---
//
// The scheduler walks configs across all tenants, so these methods take the
// company from the row rather than from the context.

// FindSourceConfigByID fetches a single source config by primary key.
func (r *PostgresRepo) FindSourceConfigByID(ctx context.Context, id string) (*model.SourceConfig, error) {
	var cfg model.SourceConfig
	operation := func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSourceConfigByID", operation)
	observer.ObserveDbOperationDuration("find", "source_config", cfg.CompanyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: source config %s not found", apperrors.ErrNotFound, id)
		}
		logger.FromContext(ctx).Error("Failed to find source config after retries", zap.String("config_id", id), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to query source config: %w", apperrors.ErrDatabase, findErr)
	}
	return &cfg, nil
}

// FindSourceConfigsByCompanyID lists every config owned by one tenant.
func (r *PostgresRepo) FindSourceConfigsByCompanyID(ctx context.Context, companyID string) ([]model.SourceConfig, error) {
	var configs []model.SourceConfig
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("created_at ASC").
			Find(&configs).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSourceConfigsByCompany", operation)
	observer.ObserveDbOperationDuration("find", "source_config", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list source configs after retries", zap.String("company_id", companyID), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to list source configs: %w", apperrors.ErrDatabase, findErr)
	}
	return configs, nil
}

// DistinctCompanyIDs lists every tenant owning at least one config. Used by
// the scheduler at startup to seed polling jobs.
func (r *PostgresRepo) DistinctCompanyIDs(ctx context.Context) ([]string, error) {
	var companyIDs []string
	operation := func() error {
		return r.db.WithContext(ctx).
			Model(&model.SourceConfig{}).
			Distinct("company_id").
			Order("company_id ASC").
			Pluck("company_id", &companyIDs).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "DistinctCompanyIDs", operation)
	observer.ObserveDbOperationDuration("find", "source_config", "", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list tenant IDs after retries", zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to list tenant IDs: %w", apperrors.ErrDatabase, findErr)
	}
	return companyIDs, nil
}

// UpdateSourceConfigHealth writes the last-import health fields on a config.
// It runs on every orchestrator exit path, so a zero count and an error
// message are both written explicitly rather than skipped as zero values.
func (r *PostgresRepo) UpdateSourceConfigHealth(ctx context.Context, id string, patch model.ImportHealthPatch) error {
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.SourceConfig{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"last_import_at":            patch.LastImportAt,
				"last_import_status":        patch.LastImportStatus,
				"last_import_leads_count":   patch.LastImportLeadsCount,
				"last_import_error_message": patch.LastImportErrorMessage,
				"updated_at":                utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: source config %s not found for health update", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	updateErr := retryableOperation(ctx, commitPolicy, "UpdateSourceConfigHealth", operation)
	observer.ObserveDbOperationDuration("update", "source_config", "", time.Since(startTime), updateErr)
	if updateErr != nil {
		logger.FromContext(ctx).Error("Failed to update source config health after retries", zap.String("config_id", id), zap.Error(updateErr))
		return updateErr
	}
	return nil
}

// SaveSourceConfig creates or fully updates a source config.
func (r *PostgresRepo) SaveSourceConfig(ctx context.Context, cfg *model.SourceConfig) error {
	cfg.UpdatedAt = utils.Now()
	operation := func() error {
		if saveErr := r.db.WithContext(ctx).Save(cfg).Error; saveErr != nil {
			return checkConstraintViolation(saveErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, commitPolicy, "SaveSourceConfig", operation)
	observer.ObserveDbOperationDuration("save", "source_config", cfg.CompanyID, time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save source config after retries", zap.String("config_id", cfg.ID), zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// DeleteSourceConfig removes a source config by primary key.
func (r *PostgresRepo) DeleteSourceConfig(ctx context.Context, id string) error {
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SourceConfig{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: source config %s not found", apperrors.ErrNotFound, id)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	deleteErr := retryableOperation(ctx, commitPolicy, "DeleteSourceConfig", operation)
	observer.ObserveDbOperationDuration("delete", "source_config", "", time.Since(startTime), deleteErr)
	if deleteErr != nil {
		logger.FromContext(ctx).Error("Failed to delete source config after retries", zap.String("config_id", id), zap.Error(deleteErr))
		return deleteErr
	}
	return nil
}
