package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
)

// --- SourceConfigRepo Mock ---

// SourceConfigRepoMock mocks the SourceConfigRepo interface
type SourceConfigRepoMock struct {
	mock.Mock
}

// FindByID mocks the FindByID method
func (m *SourceConfigRepoMock) FindByID(ctx context.Context, id string) (*model.SourceConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SourceConfig), args.Error(1)
}

// FindByCompanyID mocks the FindByCompanyID method
func (m *SourceConfigRepoMock) FindByCompanyID(ctx context.Context, companyID string) ([]model.SourceConfig, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SourceConfig), args.Error(1)
}

// DistinctCompanyIDs mocks the DistinctCompanyIDs method
func (m *SourceConfigRepoMock) DistinctCompanyIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// UpdateHealth mocks the UpdateHealth method
func (m *SourceConfigRepoMock) UpdateHealth(ctx context.Context, id string, patch model.ImportHealthPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// Save mocks the Save method
func (m *SourceConfigRepoMock) Save(ctx context.Context, cfg *model.SourceConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

// Delete mocks the Delete method
func (m *SourceConfigRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- LeadRepo Mock ---

// LeadRepoMock mocks the LeadRepo interface
type LeadRepoMock struct {
	mock.Mock
}

// FindByPhone mocks the FindByPhone method
func (m *LeadRepoMock) FindByPhone(ctx context.Context, phoneNumber string) (*model.Lead, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// Save mocks the Save method
func (m *LeadRepoMock) Save(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// Update mocks the Update method
func (m *LeadRepoMock) Update(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// --- CampaignRepo Mock ---

// CampaignRepoMock mocks the CampaignRepo interface
type CampaignRepoMock struct {
	mock.Mock
}

// FindByID mocks the FindByID method
func (m *CampaignRepoMock) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

// --- AgentConfigRepo Mock ---

// AgentConfigRepoMock mocks the AgentConfigRepo interface
type AgentConfigRepoMock struct {
	mock.Mock
}

// FindByID mocks the FindByID method
func (m *AgentConfigRepoMock) FindByID(ctx context.Context, id string) (*model.AgentConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentConfig), args.Error(1)
}

// FindByCompanyID mocks the FindByCompanyID method
func (m *AgentConfigRepoMock) FindByCompanyID(ctx context.Context, companyID string) ([]model.AgentConfig, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AgentConfig), args.Error(1)
}

// --- ImportRunRepo Mock ---

// ImportRunRepoMock mocks the ImportRunRepo interface
type ImportRunRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ImportRunRepoMock) Save(ctx context.Context, run *model.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// FindByConfigID mocks the FindByConfigID method
func (m *ImportRunRepoMock) FindByConfigID(ctx context.Context, configID string, limit int) ([]model.ImportRun, error) {
	args := m.Called(ctx, configID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ImportRun), args.Error(1)
}
