package storage

import (
	"context"
	"time"

	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// --- ImportRun Repository Methods ---

// SaveImportRun appends one audit record. Runs are never updated after the
// fact, so this is a plain insert.
func (r *PostgresRepo) SaveImportRun(ctx context.Context, run *model.ImportRun) error {
	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(run).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, commitPolicy, "SaveImportRun", operation)
	observer.ObserveDbOperationDuration("save", "import_run", run.CompanyID, time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save import run after retries",
			zap.String("config_id", run.ConfigID), zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// FindImportRunsByConfigID returns the most recent runs for a config, newest
// first. A non-positive limit falls back to 50.
func (r *PostgresRepo) FindImportRunsByConfigID(ctx context.Context, configID string, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []model.ImportRun
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("config_id = ?", configID).
			Order("started_at DESC").
			Limit(limit).
			Find(&runs).Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindImportRunsByConfig", operation)
	observer.ObserveDbOperationDuration("find", "import_run", "", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list import runs after retries",
			zap.String("config_id", configID), zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to list import runs: %w", apperrors.ErrDatabase, findErr)
	}
	return runs, nil
}
