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
	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// --- AgentConfig Repository Methods ---

// FindAgentConfigByID fetches an agent config within the tenant from the context.
func (r *PostgresRepo) FindAgentConfigByID(ctx context.Context, id string) (*model.AgentConfig, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var agent model.AgentConfig
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&agent).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindAgentConfigByID", operation)
	observer.ObserveDbOperationDuration("find", "agent_config", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: agent config %s not found", apperrors.ErrNotFound, id)
		}
		logger.FromContext(ctx).Error("Failed to find agent config after retries", zap.String("agent_config_id", id), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to query agent config: %w", apperrors.ErrDatabase, findErr)
	}
	return &agent, nil
}

// FindAgentConfigsByCompanyID lists a tenant's agents in creation order. The
// first entry is the fallback when a campaign names no preferred agent.
func (r *PostgresRepo) FindAgentConfigsByCompanyID(ctx context.Context, companyID string) ([]model.AgentConfig, error) {
	var agents []model.AgentConfig
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("created_at ASC").
			Find(&agents).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindAgentConfigsByCompany", operation)
	observer.ObserveDbOperationDuration("find", "agent_config", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list agent configs after retries", zap.String("company_id", companyID), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to list agent configs: %w", apperrors.ErrDatabase, findErr)
	}
	return agents, nil
}
