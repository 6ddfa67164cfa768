package usecase

import (
	"context"
	"time"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/config"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/source"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/storage"
)

// SourceClient is the outbound surface of the external lead API used by the
// orchestrator. Satisfied by *source.Client.
type SourceClient interface {
	TestConnection(ctx context.Context) source.ConnectionResult
	FetchLeads(ctx context.Context, filters source.FetchFilters, limit, offset int) source.FetchResult
}

// ClientFactory builds a source client for one config's credentials.
type ClientFactory func(baseURL, apiKey string) SourceClient

// RunPublisher emits a run-completed event after every finished import.
// Implementations must tolerate being called with a failed run.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, run *model.ImportRun) error
}

// ImportService orchestrates lead imports: fetch, dedup, schedule, audit.
type ImportService struct {
	configs   storage.SourceConfigRepo
	leads     storage.LeadRepo
	campaigns storage.CampaignRepo
	agents    storage.AgentConfigRepo
	runs      storage.ImportRunRepo

	newClient ClientFactory
	publisher RunPublisher // optional
	syncCfg   config.SyncConfig
}

// NewImportService creates the import orchestrator. publisher may be nil when
// eventing is disabled.
func NewImportService(
	configs storage.SourceConfigRepo,
	leads storage.LeadRepo,
	campaigns storage.CampaignRepo,
	agents storage.AgentConfigRepo,
	runs storage.ImportRunRepo,
	newClient ClientFactory,
	publisher RunPublisher,
	syncCfg config.SyncConfig,
) *ImportService {
	if newClient == nil {
		timeout := syncCfg.HTTPTimeout
		newClient = func(baseURL, apiKey string) SourceClient {
			return source.NewClient(baseURL, apiKey, timeout)
		}
	}
	return &ImportService{
		configs:   configs,
		leads:     leads,
		campaigns: campaigns,
		agents:    agents,
		runs:      runs,
		newClient: newClient,
		publisher: publisher,
		syncCfg:   syncCfg,
	}
}

// TestSourceConnection probes a config's external API.
func (s *ImportService) TestSourceConnection(ctx context.Context, cfg *model.SourceConfig) source.ConnectionResult {
	client := s.newClient(cfg.BaseURL, cfg.APIKey)
	testCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return client.TestConnection(testCtx)
}
