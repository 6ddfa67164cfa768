package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// --- Lead Repository Methods ---

// FindByPhone looks up a lead by normalized phone number within the tenant
// from the context. Returns apperrors.ErrNotFound when absent.
func (r *PostgresRepo) FindLeadByPhone(ctx context.Context, phoneNumber string) (*model.Lead, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}

	var lead model.Lead
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND phone_number = ?", companyID, phoneNumber).
			First(&lead)
		return result.Error
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindLeadByPhone", operation)
	observer.ObserveDbOperationDuration("find", "lead", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: lead with phone %s not found", apperrors.ErrNotFound, phoneNumber)
		}
		logger.FromContext(ctx).Error("Failed to find lead by phone after retries", zap.Error(findErr))
		return nil, fmt.Errorf("%w: failed to query lead: %w", apperrors.ErrDatabase, findErr)
	}
	return &lead, nil
}

// SaveLead inserts a new lead. A unique violation on (company_id, phone_number)
// surfaces as apperrors.ErrDuplicate.
func (r *PostgresRepo) SaveLead(ctx context.Context, lead *model.Lead) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != lead.CompanyID {
		return fmt.Errorf("%w: lead CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, lead.CompanyID, companyID)
	}

	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(lead).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	saveErr := retryableOperation(ctx, commitPolicy, "SaveLead", operation)
	observer.ObserveDbOperationDuration("save", "lead", companyID, time.Since(startTime), saveErr)
	if saveErr != nil {
		logger.FromContext(ctx).Error("Failed to save lead after retries", zap.Error(saveErr))
		return saveErr
	}
	return nil
}

// UpdateLead applies changes to an existing lead inside a transaction with a
// row lock, so concurrent imports of the same phone serialize.
func (r *PostgresRepo) UpdateLead(ctx context.Context, lead *model.Lead) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != lead.CompanyID {
		return fmt.Errorf("%w: lead CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, lead.CompanyID, companyID)
	}
	lead.UpdatedAt = utils.Now()

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.Lead
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("company_id = ? AND phone_number = ?", lead.CompanyID, lead.PhoneNumber).
			First(&existing)
		if findErr := result.Error; findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: lead with phone %s not found for update", apperrors.ErrNotFound, lead.PhoneNumber)
				return txErr
			}
			txErr = fmt.Errorf("%w: failed to lock lead row: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		if updateErr := tx.Model(&existing).Updates(lead).Error; updateErr != nil {
			txErr = checkConstraintViolation(updateErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	updateErr := retryableOperation(ctx, commitPolicy, "UpdateLead", operation)
	observer.ObserveDbOperationDuration("update", "lead", companyID, time.Since(startTime), updateErr)
	if updateErr != nil {
		logger.FromContext(ctx).Error("Failed to update lead after retries", zap.Error(updateErr))
		return updateErr
	}
	return nil
}
