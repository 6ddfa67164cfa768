package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/config"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/storage"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"

	"github.com/google/uuid"
)

// ImportRunner executes one import run for a config. Satisfied by
// *usecase.ImportService.
type ImportRunner interface {
	Run(ctx context.Context, cfg *model.SourceConfig, runKind string) (*model.ImportRun, error)
}

// pollTask is the unit of work handed to the executor pool.
type pollTask struct {
	configID string
}

// PollingScheduler owns the recurring import jobs for every tenant. One cron
// entry per config; ticks are executed on a bounded worker pool so a slow
// source cannot starve the cron goroutine.
type PollingScheduler struct {
	cron    *cron.Cron
	configs storage.SourceConfigRepo
	runner  ImportRunner
	pool    *ants.PoolWithFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool

	baseLogger *zap.Logger
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewPollingScheduler creates the scheduler with its executor pool. The cron
// instance runs in the configured timezone so day-aligned expressions fire at
// the tenant-expected midnight.
func NewPollingScheduler(
	poolCfg config.ImporterWorkerPoolConfig,
	timezone string,
	configs storage.SourceConfigRepo,
	runner ImportRunner,
	baseLogger *zap.Logger,
) (*PollingScheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
	}

	s := &PollingScheduler{
		configs:    configs,
		runner:     runner,
		entries:    make(map[string]cron.EntryID),
		baseLogger: baseLogger.Named("polling_scheduler"),
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{log: s.baseLogger.Sugar()}),
	)

	pool, err := ants.NewPoolWithFunc(poolCfg.PoolSize, func(i interface{}) {
		task, ok := i.(pollTask)
		if !ok {
			s.baseLogger.Error("Invalid task type received by executor pool", zap.Any("data", i))
			return
		}
		s.executeImport(task.configID)
	},
		ants.WithExpiryDuration(poolCfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(poolCfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			s.baseLogger.Error("Panic recovered in import executor", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create import executor pool: %w", err)
	}
	s.pool = pool

	s.baseLogger.Info("Polling scheduler initialized",
		zap.String("timezone", loc.String()),
		zap.Int("pool_size", poolCfg.PoolSize),
	)
	return s, nil
}

// Initialize registers a job for every eligible config across all tenants and
// starts the cron loop. A second call is a no-op.
func (s *PollingScheduler) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.baseLogger.Warn("Polling scheduler already initialized, ignoring")
		return nil
	}
	s.started = true
	s.mu.Unlock()

	companyIDs, err := s.configs.DistinctCompanyIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants for polling: %w", err)
	}

	registered := 0
	for _, companyID := range companyIDs {
		cfgs, err := s.configs.FindByCompanyID(ctx, companyID)
		if err != nil {
			s.baseLogger.Error("Failed to list configs for tenant, skipping",
				zap.String("company_id", companyID), zap.Error(err))
			continue
		}
		for i := range cfgs {
			cfg := &cfgs[i]
			if !cfg.EligibleForPolling() {
				continue
			}
			if err := s.register(ctx, cfg); err != nil {
				s.baseLogger.Error("Failed to register polling job",
					zap.String("config_id", cfg.ID), zap.Error(err))
				continue
			}
			registered++
		}
	}

	s.cron.Start()
	s.baseLogger.Info("Polling scheduler started", zap.Int("jobs", registered))
	return nil
}

// StartPolling registers (or replaces) the recurring job for one config. The
// config is read fresh so interval and flag changes take effect; a missing,
// inactive or polling-disabled config is refused.
func (s *PollingScheduler) StartPolling(ctx context.Context, configID string) error {
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return err
	}
	if !cfg.EligibleForPolling() {
		return fmt.Errorf("config %s is not eligible for polling: %w", configID, apperrors.ErrConflict)
	}
	return s.register(ctx, cfg)
}

// register adds the cron entry for a config. The previous entry, if any, is
// removed under the same lock, so no interleaving start can leave two live
// entries for one config.
func (s *PollingScheduler) register(ctx context.Context, cfg *model.SourceConfig) error {
	expr, err := IntervalToCronExpr(cfg.PollingIntervalMinutes)
	if err != nil {
		return apperrors.NewFatal(err, "cannot schedule config %s", cfg.ID)
	}

	configID := cfg.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[configID]; ok {
		s.cron.Remove(old)
	}

	entryID, err := s.cron.AddFunc(expr, func() {
		s.enqueue(configID)
	})
	if err != nil {
		delete(s.entries, configID)
		observer.SetActivePollingJobs(len(s.entries))
		return fmt.Errorf("failed to add cron entry for config %s: %w", configID, err)
	}
	s.entries[configID] = entryID
	observer.SetActivePollingJobs(len(s.entries))

	logger.FromContext(ctx).Info("Polling started",
		zap.String("config_id", configID),
		zap.String("cron_expr", expr),
		zap.Int("interval_minutes", cfg.PollingIntervalMinutes))
	return nil
}

// StopPolling removes the recurring job for one config. Stopping an unknown
// config is not an error.
func (s *PollingScheduler) StopPolling(ctx context.Context, configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx, configID)
}

func (s *PollingScheduler) stopLocked(ctx context.Context, configID string) {
	entryID, ok := s.entries[configID]
	if !ok {
		return
	}
	s.cron.Remove(entryID)
	delete(s.entries, configID)
	observer.SetActivePollingJobs(len(s.entries))
	logger.FromContext(ctx).Info("Polling stopped", zap.String("config_id", configID))
}

// ActiveJobs returns the number of registered polling jobs.
func (s *PollingScheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StopAll halts the cron loop, waits for in-flight ticks and releases the
// executor pool.
func (s *PollingScheduler) StopAll(ctx context.Context) {
	s.mu.Lock()
	for configID := range s.entries {
		s.stopLocked(ctx, configID)
	}
	stopCtx := s.cron.Stop()
	s.started = false
	s.mu.Unlock()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.baseLogger.Warn("Timed out waiting for running jobs to finish")
	}
	s.pool.Release()
	s.baseLogger.Info("Polling scheduler stopped")
}

// enqueue hands a tick to the executor pool.
func (s *PollingScheduler) enqueue(configID string) {
	if err := s.pool.Invoke(pollTask{configID: configID}); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			s.baseLogger.Warn("Import executor pool saturated, tick dropped",
				zap.String("config_id", configID))
			return
		}
		s.baseLogger.Error("Failed to submit import tick",
			zap.String("config_id", configID), zap.Error(err))
	}
}

// executeImport runs one scheduled tick. The config is re-read so each tick
// honors the latest filters and flags; a config that disappeared or was
// disabled since registration cancels its own job.
func (s *PollingScheduler) executeImport(configID string) {
	ctx := tenant.WithRequestID(context.Background(), uuid.New().String())
	log := s.baseLogger.With(zap.String("config_id", configID))

	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			log.Info("Config deleted, cancelling its polling job")
			s.StopPolling(ctx, configID)
			return
		}
		log.Error("Failed to re-read config for tick, keeping job", zap.Error(err))
		return
	}

	if !cfg.EligibleForPolling() {
		log.Info("Config no longer eligible for polling, cancelling its job")
		s.StopPolling(ctx, configID)
		return
	}

	if _, err := s.runner.Run(ctx, cfg, model.RunKindScheduled); err != nil {
		// Run already wrote the audit record and health patch.
		log.Warn("Scheduled import run failed", zap.Error(err))
	}
}
