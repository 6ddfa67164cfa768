package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/source"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

// --- Mocks ---

type configManagerMock struct {
	mock.Mock
}

func (m *configManagerMock) CreateConfig(ctx context.Context, cfg *model.SourceConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *configManagerMock) UpdateConfig(ctx context.Context, cfg *model.SourceConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *configManagerMock) GetConfig(ctx context.Context, id string) (*model.SourceConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SourceConfig), args.Error(1)
}

func (m *configManagerMock) ListConfigs(ctx context.Context, companyID string) ([]model.SourceConfig, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourceConfig), args.Error(1)
}

func (m *configManagerMock) DeleteConfig(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *configManagerMock) ListRuns(ctx context.Context, configID string, limit int) ([]model.ImportRun, error) {
	args := m.Called(ctx, configID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImportRun), args.Error(1)
}

type importerMock struct {
	mock.Mock
}

func (m *importerMock) Run(ctx context.Context, cfg *model.SourceConfig, runKind string) (*model.ImportRun, error) {
	args := m.Called(ctx, cfg, runKind)
	var run *model.ImportRun
	if args.Get(0) != nil {
		run = args.Get(0).(*model.ImportRun)
	}
	return run, args.Error(1)
}

func (m *importerMock) TestSourceConnection(ctx context.Context, cfg *model.SourceConfig) source.ConnectionResult {
	args := m.Called(ctx, cfg)
	return args.Get(0).(source.ConnectionResult)
}

type pollingControlMock struct {
	mock.Mock
}

func (m *pollingControlMock) StartPolling(ctx context.Context, configID string) error {
	args := m.Called(ctx, configID)
	return args.Error(0)
}

func (m *pollingControlMock) StopPolling(ctx context.Context, configID string) {
	m.Called(ctx, configID)
}

// --- Fixture ---

type handlerFixture struct {
	configs   *configManagerMock
	importer  *importerMock
	scheduler *pollingControlMock
	router    http.Handler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		configs:   &configManagerMock{},
		importer:  &importerMock{},
		scheduler: &pollingControlMock{},
	}
	handler := NewHandler(f.configs, f.importer, f.scheduler)
	f.router = NewRouter(handler, zap.NewNop())
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Company-ID", "company-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func ownedConfigFixture() *model.SourceConfig {
	return &model.SourceConfig{
		ID:                     "cfg-1",
		CompanyID:              "company-1",
		ConfigName:             "Portal",
		BaseURL:                "https://portal.example.com",
		APIKey:                 "secret-key-0001",
		PollingIntervalMinutes: 5,
		IsActive:               true,
	}
}

// --- Tests ---

func TestCreateConfig_Created(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("CreateConfig", mock.Anything, mock.MatchedBy(func(cfg *model.SourceConfig) bool {
		return cfg.CompanyID == "company-1" &&
			cfg.ConfigName == "Portal" &&
			cfg.APIKey == "secret-key-0001" &&
			cfg.IsActive
	})).Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/", map[string]interface{}{
		"config_name": "Portal",
		"base_url":    "https://portal.example.com",
		"api_key":     "secret-key-0001",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.configs.AssertExpectations(t)
	f.scheduler.AssertNotCalled(t, "StartPolling", mock.Anything, mock.Anything)
}

func TestCreateConfig_StartsPollingWhenEligible(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("CreateConfig", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.SourceConfig).ID = "cfg-new"
		}).Return(nil).Once()
	f.scheduler.On("StartPolling", mock.Anything, "cfg-new").Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/", map[string]interface{}{
		"config_name":     "Portal",
		"base_url":        "https://portal.example.com",
		"api_key":         "secret-key-0001",
		"polling_enabled": true,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.scheduler.AssertExpectations(t)
}

func TestCreateConfig_InvalidBody(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/source-configs/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("X-Company-ID", "company-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingCompanyHeader(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/source-configs/", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetConfig_ForeignTenantLooksMissing(t *testing.T) {
	f := newHandlerFixture()

	foreign := ownedConfigFixture()
	foreign.CompanyID = "company-2"
	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(foreign, nil).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/source-configs/cfg-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetConfig_NeverEchoesAPIKey(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/source-configs/cfg-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-key-0001")
}

func TestUpdateConfig_StopsPollingWhenDisabled(t *testing.T) {
	f := newHandlerFixture()

	existing := ownedConfigFixture()
	existing.PollingEnabled = true
	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(existing, nil).Once()
	f.configs.On("UpdateConfig", mock.Anything, mock.Anything).Return(nil).Once()
	f.scheduler.On("StopPolling", mock.Anything, "cfg-1").Once()

	rec := f.do(t, http.MethodPut, "/api/v1/source-configs/cfg-1", map[string]interface{}{
		"polling_enabled": false,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	f.scheduler.AssertExpectations(t)
}

func TestDeleteConfig_StopsPollingFirst(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.scheduler.On("StopPolling", mock.Anything, "cfg-1").Once()
	f.configs.On("DeleteConfig", mock.Anything, "cfg-1").Return(nil).Once()

	rec := f.do(t, http.MethodDelete, "/api/v1/source-configs/cfg-1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.scheduler.AssertExpectations(t)
	f.configs.AssertExpectations(t)
}

func TestTestConnection_ReturnsResult(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.importer.On("TestSourceConnection", mock.Anything, mock.Anything).
		Return(source.ConnectionResult{Success: false, ErrorKind: source.ErrorKindAuthentication, Message: "invalid API key"}).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/test-connection", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result source.ConnectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, source.ErrorKindAuthentication, result.ErrorKind)
}

func TestTriggerImport_Success(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.importer.On("Run", mock.Anything, mock.Anything, model.RunKindManual).
		Return(&model.ImportRun{ID: "run-1", Status: model.ImportStatusPartial, LeadsImported: 2, LeadsErrored: 1}, nil).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/import", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var run model.ImportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, model.ImportStatusPartial, run.Status)
}

func TestTriggerImport_FatalReturnsRunWith500(t *testing.T) {
	f := newHandlerFixture()

	failedRun := &model.ImportRun{ID: "run-1", Status: model.ImportStatusError, ErrorMessage: "source fetch failed"}
	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.importer.On("Run", mock.Anything, mock.Anything, model.RunKindManual).
		Return(failedRun, apperrors.NewFatal(apperrors.ErrConnectivity, "source fetch failed")).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/import", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var run model.ImportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, model.ImportStatusError, run.Status)
}

func TestStartPolling_RejectsInactiveConfig(t *testing.T) {
	f := newHandlerFixture()

	inactive := ownedConfigFixture()
	inactive.IsActive = false
	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(inactive, nil).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/polling/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	f.configs.AssertNotCalled(t, "UpdateConfig", mock.Anything, mock.Anything)
}

func TestStartPolling_EnablesAndSchedules(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.configs.On("UpdateConfig", mock.Anything, mock.MatchedBy(func(cfg *model.SourceConfig) bool {
		return cfg.PollingEnabled
	})).Return(nil).Once()
	f.scheduler.On("StartPolling", mock.Anything, mock.Anything).Return(nil).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/polling/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	f.scheduler.AssertExpectations(t)
}

func TestStopPolling_DisablesAndUnschedules(t *testing.T) {
	f := newHandlerFixture()

	enabled := ownedConfigFixture()
	enabled.PollingEnabled = true
	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(enabled, nil).Once()
	f.configs.On("UpdateConfig", mock.Anything, mock.MatchedBy(func(cfg *model.SourceConfig) bool {
		return !cfg.PollingEnabled
	})).Return(nil).Once()
	f.scheduler.On("StopPolling", mock.Anything, "cfg-1").Once()

	rec := f.do(t, http.MethodPost, "/api/v1/source-configs/cfg-1/polling/stop", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	f.scheduler.AssertExpectations(t)
}

func TestListRuns_PassesLimit(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()
	f.configs.On("ListRuns", mock.Anything, "cfg-1", 10).
		Return([]model.ImportRun{{ID: "run-1"}}, nil).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/source-configs/cfg-1/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []model.ImportRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestListRuns_InvalidLimit(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-1").Return(ownedConfigFixture(), nil).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/source-configs/cfg-1/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigNotFound(t *testing.T) {
	f := newHandlerFixture()

	f.configs.On("GetConfig", mock.Anything, "cfg-missing").Return(nil, apperrors.ErrNotFound).Once()

	rec := f.do(t, http.MethodGet, "/api/v1/source-configs/cfg-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
