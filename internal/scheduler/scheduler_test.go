package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/config"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	storagemock "gitlab.com/timkado/api/daisi-lead-sync/internal/storage/mock"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type importRunnerMock struct {
	mock.Mock
}

func (m *importRunnerMock) Run(ctx context.Context, cfg *model.SourceConfig, runKind string) (*model.ImportRun, error) {
	args := m.Called(ctx, cfg, runKind)
	var run *model.ImportRun
	if args.Get(0) != nil {
		run = args.Get(0).(*model.ImportRun)
	}
	return run, args.Error(1)
}

func testPoolConfig() config.ImporterWorkerPoolConfig {
	return config.ImporterWorkerPoolConfig{
		PoolSize:   2,
		QueueSize:  10,
		ExpiryTime: time.Minute,
	}
}

func pollingConfig(id string) *model.SourceConfig {
	return &model.SourceConfig{
		ID:                     id,
		CompanyID:              "company-1",
		ConfigName:             "Portal",
		BaseURL:                "https://portal.example.com",
		APIKey:                 "secret-key-0001",
		PollingEnabled:         true,
		PollingIntervalMinutes: 5,
		IsActive:               true,
	}
}

func newTestScheduler(t *testing.T, configs *storagemock.SourceConfigRepoMock, runner *importRunnerMock) *PollingScheduler {
	t.Helper()
	s, err := NewPollingScheduler(testPoolConfig(), "UTC", configs, runner, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.StopAll(ctx)
	})
	return s
}

func TestNewPollingScheduler_InvalidTimezone(t *testing.T) {
	_, err := NewPollingScheduler(testPoolConfig(), "Mars/Olympus", &storagemock.SourceConfigRepoMock{}, &importRunnerMock{}, zap.NewNop())
	assert.Error(t, err)
}

func TestStartPolling_RegistersJob(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	configs.On("FindByID", mock.Anything, "cfg-1").Return(pollingConfig("cfg-1"), nil).Once()
	s := newTestScheduler(t, configs, &importRunnerMock{})

	err := s.StartPolling(context.Background(), "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.ActiveJobs())
}

func TestStartPolling_ReplacesExistingJob(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	configs.On("FindByID", mock.Anything, "cfg-1").Return(pollingConfig("cfg-1"), nil).Once()
	rescheduled := pollingConfig("cfg-1")
	rescheduled.PollingIntervalMinutes = 30
	configs.On("FindByID", mock.Anything, "cfg-1").Return(rescheduled, nil).Once()
	s := newTestScheduler(t, configs, &importRunnerMock{})

	require.NoError(t, s.StartPolling(context.Background(), "cfg-1"))
	require.NoError(t, s.StartPolling(context.Background(), "cfg-1"))

	assert.Equal(t, 1, s.ActiveJobs())
}

func TestStartPolling_RefusesIneligibleConfig(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	disabled := pollingConfig("cfg-1")
	disabled.PollingEnabled = false
	configs.On("FindByID", mock.Anything, "cfg-1").Return(disabled, nil).Once()
	s := newTestScheduler(t, configs, &importRunnerMock{})

	err := s.StartPolling(context.Background(), "cfg-1")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 0, s.ActiveJobs())
}

func TestStartPolling_MissingConfig(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	configs.On("FindByID", mock.Anything, "cfg-1").Return(nil, apperrors.ErrNotFound).Once()
	s := newTestScheduler(t, configs, &importRunnerMock{})

	err := s.StartPolling(context.Background(), "cfg-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, s.ActiveJobs())
}

func TestStartPolling_RejectsInvalidInterval(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	cfg := pollingConfig("cfg-1")
	cfg.PollingIntervalMinutes = 0
	configs.On("FindByID", mock.Anything, "cfg-1").Return(cfg, nil).Once()
	s := newTestScheduler(t, configs, &importRunnerMock{})

	err := s.StartPolling(context.Background(), "cfg-1")
	assert.Error(t, err)
	assert.Equal(t, 0, s.ActiveJobs())
}

func TestStopPolling_UnknownConfigIsNoop(t *testing.T) {
	s := newTestScheduler(t, &storagemock.SourceConfigRepoMock{}, &importRunnerMock{})

	s.StopPolling(context.Background(), "never-registered")
	assert.Equal(t, 0, s.ActiveJobs())
}

func TestInitialize_RegistersOnlyEligibleConfigs(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	ctx := context.Background()

	eligible := pollingConfig("cfg-eligible")
	disabled := pollingConfig("cfg-disabled")
	disabled.PollingEnabled = false
	inactive := pollingConfig("cfg-inactive")
	inactive.IsActive = false
	otherTenant := pollingConfig("cfg-other")
	otherTenant.CompanyID = "company-2"

	configs.On("DistinctCompanyIDs", ctx).Return([]string{"company-1", "company-2"}, nil).Once()
	configs.On("FindByCompanyID", ctx, "company-1").
		Return([]model.SourceConfig{*eligible, *disabled, *inactive}, nil).Once()
	configs.On("FindByCompanyID", ctx, "company-2").
		Return([]model.SourceConfig{*otherTenant}, nil).Once()

	s := newTestScheduler(t, configs, &importRunnerMock{})

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 2, s.ActiveJobs())
	configs.AssertExpectations(t)

	// A second call is a no-op and does not hit the store again.
	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 2, s.ActiveJobs())
}

func TestInitialize_SkipsTenantOnListError(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	ctx := context.Background()

	configs.On("DistinctCompanyIDs", ctx).Return([]string{"company-1", "company-2"}, nil).Once()
	configs.On("FindByCompanyID", ctx, "company-1").
		Return(nil, apperrors.ErrDatabase).Once()
	configs.On("FindByCompanyID", ctx, "company-2").
		Return([]model.SourceConfig{*pollingConfig("cfg-1")}, nil).Once()

	s := newTestScheduler(t, configs, &importRunnerMock{})

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, 1, s.ActiveJobs())
	configs.AssertExpectations(t)
}

func TestExecuteImport_RunsScheduledImport(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	runner := &importRunnerMock{}

	cfg := pollingConfig("cfg-1")
	configs.On("FindByID", mock.Anything, "cfg-1").Return(cfg, nil).Once()
	runner.On("Run", mock.Anything, cfg, model.RunKindScheduled).
		Return(&model.ImportRun{Status: model.ImportStatusSuccess}, nil).Once()

	s := newTestScheduler(t, configs, runner)
	s.executeImport("cfg-1")

	configs.AssertExpectations(t)
	runner.AssertExpectations(t)
}

func TestExecuteImport_CancelsJobWhenConfigDeleted(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	runner := &importRunnerMock{}

	s := newTestScheduler(t, configs, runner)
	require.NoError(t, s.register(context.Background(), pollingConfig("cfg-1")))

	configs.On("FindByID", mock.Anything, "cfg-1").Return(nil, apperrors.ErrNotFound).Once()

	s.executeImport("cfg-1")

	assert.Equal(t, 0, s.ActiveJobs())
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteImport_CancelsJobWhenConfigDisabled(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	runner := &importRunnerMock{}

	s := newTestScheduler(t, configs, runner)
	require.NoError(t, s.register(context.Background(), pollingConfig("cfg-1")))

	disabled := pollingConfig("cfg-1")
	disabled.PollingEnabled = false
	configs.On("FindByID", mock.Anything, "cfg-1").Return(disabled, nil).Once()

	s.executeImport("cfg-1")

	assert.Equal(t, 0, s.ActiveJobs())
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteImport_KeepsJobOnTransientReadError(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	runner := &importRunnerMock{}

	s := newTestScheduler(t, configs, runner)
	require.NoError(t, s.register(context.Background(), pollingConfig("cfg-1")))

	configs.On("FindByID", mock.Anything, "cfg-1").Return(nil, apperrors.ErrDatabase).Once()

	s.executeImport("cfg-1")

	assert.Equal(t, 1, s.ActiveJobs())
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestStopAll_ClearsRegistry(t *testing.T) {
	configs := &storagemock.SourceConfigRepoMock{}
	s, err := NewPollingScheduler(testPoolConfig(), "UTC", configs, &importRunnerMock{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.register(context.Background(), pollingConfig("cfg-1")))
	require.NoError(t, s.register(context.Background(), pollingConfig("cfg-2")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.StopAll(ctx)

	assert.Equal(t, 0, s.ActiveJobs())
}
