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

// --- Campaign Repository Methods ---

// FindCampaignByID fetches a campaign within the tenant from the context.
func (r *PostgresRepo) FindCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var campaign model.Campaign
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&campaign).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindCampaignByID", operation)
	observer.ObserveDbOperationDuration("find", "campaign", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: campaign %s not found", apperrors.ErrNotFound, id)
		}
		logger.FromContext(ctx).Error("Failed to find campaign after retries", zap.String("campaign_id", id), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to query campaign: %w", apperrors.ErrDatabase, findErr)
	}
	return &campaign, nil
}
