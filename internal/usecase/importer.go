package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/source"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// runCounters tracks per-lead outcomes while a run is in flight.
type runCounters struct {
	processed  int
	imported   int
	updated    int
	duplicated int
	errored    int
	skipped    int
	errors     []string
}

// Run executes one import for a config: drain the source with pagination,
// resolve the outbound agent, upsert every lead, then write the audit record
// and the config health patch. The audit and health writes happen on every
// exit path, including fatal ones.
func (s *ImportService) Run(ctx context.Context, cfg *model.SourceConfig, runKind string) (*model.ImportRun, error) {
	ctx = tenant.WithCompanyID(ctx, cfg.CompanyID)
	log := logger.FromContext(ctx).With(
		zap.String("config_id", cfg.ID),
		zap.String("company_id", cfg.CompanyID),
		zap.String("run_kind", runKind),
	)
	startedAt := utils.Now()
	counters := &runCounters{}

	fatalErr := s.execute(ctx, cfg, counters, log)

	completedAt := utils.Now()
	status := classifyRun(counters, fatalErr)

	run := s.buildRun(cfg, runKind, status, counters, startedAt, completedAt, fatalErr)
	s.finalizeRun(ctx, cfg, run, log)

	if fatalErr != nil {
		log.Error("Import run failed", zap.Error(fatalErr))
		return run, fatalErr
	}

	log.Info("Import run completed",
		zap.String("status", status),
		zap.Int("imported", counters.imported),
		zap.Int("updated", counters.updated),
		zap.Int("errored", counters.errored),
		zap.Int("skipped", counters.skipped),
	)
	return run, nil
}

// execute performs the fetch and per-lead processing. A returned error is
// fatal: nothing was or will be imported in this run beyond what the counters
// already recorded.
func (s *ImportService) execute(ctx context.Context, cfg *model.SourceConfig, counters *runCounters, log *zap.Logger) error {
	client := s.newClient(cfg.BaseURL, cfg.APIKey)

	leads, err := s.fetchAll(ctx, client, cfg, log)
	if err != nil {
		return err
	}

	// Resolved before the empty short-circuit: a tenant without an outbound
	// agent fails the run even when the source returns nothing.
	campaign, agent, agentConfigID, err := s.resolveAgent(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Cap enforcement with skipped accounting
	if cfg.MaxLeadsPerImport > 0 && len(leads) > cfg.MaxLeadsPerImport {
		skipped := len(leads) - cfg.MaxLeadsPerImport
		leads = leads[:cfg.MaxLeadsPerImport]
		counters.skipped = skipped
		counters.errors = append(counters.errors,
			fmt.Sprintf("%d lead(s) skipped due to max leads per import limit", skipped))
		log.Warn("Import capped", zap.Int("max", cfg.MaxLeadsPerImport), zap.Int("skipped", skipped))
	}
	counters.processed = len(leads)

	if len(leads) == 0 {
		log.Info("No leads returned by source")
		return nil
	}

	delayMinutes := cfg.ContactDelayMinutes
	if delayMinutes <= 0 {
		delayMinutes = s.syncCfg.DefaultDelayMinutes
	}
	baseTime := utils.Now()

	for i, record := range leads {
		s.processLead(ctx, cfg, record, i, baseTime, delayMinutes, campaign, agent, agentConfigID, counters, log)
	}
	return nil
}

// fetchAll drains the source page by page. A failure on the first page is
// fatal; a failure after at least one page truncates to what was fetched.
func (s *ImportService) fetchAll(ctx context.Context, client SourceClient, cfg *model.SourceConfig, log *zap.Logger) ([]model.ExternalLeadRecord, error) {
	pageSize := s.syncCfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	filters := source.FetchFilters{
		LeadType:       cfg.LeadType,
		DaysFilter:     cfg.DaysFilter,
		SourceFilter:   cfg.SourceFilter,
		CampaignFilter: cfg.CampaignFilter,
	}

	var all []model.ExternalLeadRecord
	offset := 0
	for {
		result := client.FetchLeads(ctx, filters, pageSize, offset)
		if !result.Success {
			if len(all) == 0 {
				msg := result.Error
				if msg == "" {
					msg = "failed to fetch leads from source"
				}
				cause := fmt.Errorf("%s", msg)
				switch result.ErrorKind {
				case source.ErrorKindAuthentication:
					cause = fmt.Errorf("%s: %w", msg, apperrors.ErrAuthentication)
				case source.ErrorKindConnectivity:
					cause = fmt.Errorf("%s: %w", msg, apperrors.ErrConnectivity)
				}
				return nil, apperrors.NewFatal(cause, "source fetch failed")
			}
			log.Warn("Source page fetch failed, continuing with partial data",
				zap.Int("offset", offset), zap.String("error", result.Error))
			break
		}

		log.Debug("Fetched source page", zap.Int("offset", offset), zap.Int("count", len(result.Data)))
		all = append(all, result.Data...)
		offset += pageSize

		if len(result.Data) < pageSize {
			break
		}
		if cfg.MaxLeadsPerImport > 0 && len(all) >= cfg.MaxLeadsPerImport {
			log.Info("Reached import cap during fetch", zap.Int("max", cfg.MaxLeadsPerImport))
			break
		}
	}
	return all, nil
}

// resolveAgent picks the outbound agent once per run: the target campaign's
// preferred agent when set, otherwise the tenant's first agent. No agent at
// all is fatal.
func (s *ImportService) resolveAgent(ctx context.Context, cfg *model.SourceConfig, log *zap.Logger) (*model.Campaign, *model.AgentConfig, string, error) {
	var campaign *model.Campaign
	var agentConfigID string

	if cfg.TargetCampaignID != "" {
		found, err := s.campaigns.FindByID(ctx, cfg.TargetCampaignID)
		switch {
		case err == nil:
			campaign = found
			if campaign.PreferredAgentConfigID != "" {
				agentConfigID = campaign.PreferredAgentConfigID
				log.Debug("Using agent from campaign", zap.String("agent_config_id", agentConfigID))
			}
		case apperrors.IsNotFoundError(err):
			log.Warn("Target campaign not found, falling back to tenant agents",
				zap.String("campaign_id", cfg.TargetCampaignID))
		default:
			return nil, nil, "", apperrors.NewFatal(err, "failed to load target campaign %s", cfg.TargetCampaignID)
		}
	}

	if agentConfigID == "" {
		agents, err := s.agents.FindByCompanyID(ctx, cfg.CompanyID)
		if err != nil {
			return nil, nil, "", apperrors.NewFatal(err, "failed to list tenant agents")
		}
		if len(agents) == 0 {
			return nil, nil, "", apperrors.NewFatal(apperrors.ErrNotFound, "no outbound agent configured for tenant %s", cfg.CompanyID)
		}
		agentConfigID = agents[0].ID
		log.Debug("Using first available agent", zap.String("agent_config_id", agentConfigID))
	}

	agent, err := s.agents.FindByID(ctx, agentConfigID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			// Keep the dangling reference; defaults simply stay empty.
			return campaign, nil, agentConfigID, nil
		}
		return nil, nil, "", apperrors.NewFatal(err, "failed to load agent config %s", agentConfigID)
	}
	return campaign, agent, agentConfigID, nil
}

// processLead upserts one external record into the tenant's leads.
func (s *ImportService) processLead(
	ctx context.Context,
	cfg *model.SourceConfig,
	record model.ExternalLeadRecord,
	index int,
	baseTime time.Time,
	delayMinutes int,
	campaign *model.Campaign,
	agent *model.AgentConfig,
	agentConfigID string,
	counters *runCounters,
	log *zap.Logger,
) {
	firstName, lastName := SplitFullName(record.FullName)
	if firstName == "" || strings.TrimSpace(record.Phone) == "" {
		counters.errored++
		counters.errors = append(counters.errors,
			fmt.Sprintf("lead %s: missing required fields (name or phone)", leadRef(record)))
		return
	}

	phoneNumber := NormalizePhone(record.Phone, s.syncCfg.DefaultCountryCode)
	info := buildLeadInfo(record, campaign, agent)

	existing, err := s.leads.FindByPhone(ctx, phoneNumber)
	if err != nil && !apperrors.IsNotFoundError(err) {
		counters.errored++
		counters.errors = append(counters.errors,
			fmt.Sprintf("lead %s: %v", leadRef(record), err))
		return
	}

	if existing != nil {
		existing.FirstName = firstName
		existing.LastName = lastName
		// Status only ever promotes to converted, never regresses.
		if record.Status == model.LeadStatusConverted {
			existing.Status = model.LeadStatusConverted
		}
		if info.HasValue() {
			existing.LeadInfo = datatypes.JSON(utils.MustMarshalJSON(info))
		}
		if updateErr := s.leads.Update(ctx, existing); updateErr != nil {
			counters.errored++
			counters.errors = append(counters.errors,
				fmt.Sprintf("lead %s: %v", leadRef(record), updateErr))
			return
		}
		counters.updated++
		log.Debug("Updated existing lead", zap.String("phone_number", phoneNumber))
		return
	}

	// Progressive contact scheduling with jitter so first contacts don't
	// fire as a burst.
	schedule := baseTime.
		Add(time.Duration(index) * time.Duration(delayMinutes) * time.Minute).
		Add(time.Duration(rand.Intn(61)-30) * time.Second)
	importedAt := utils.Now()

	lead := &model.Lead{
		ID:              uuid.New().String(),
		CompanyID:       cfg.CompanyID,
		PhoneNumber:     phoneNumber,
		FirstName:       firstName,
		LastName:        lastName,
		Status:          model.LeadStatusPending,
		AgentConfigID:   agentConfigID,
		CampaignID:      cfg.TargetCampaignID,
		ContactSchedule: &schedule,
		ImportedAt:      &importedAt,
	}
	if info.HasValue() {
		lead.LeadInfo = datatypes.JSON(utils.MustMarshalJSON(info))
	}

	if saveErr := s.leads.Save(ctx, lead); saveErr != nil {
		if apperrors.IsDuplicateError(saveErr) {
			// Another worker inserted the same phone between lookup and save.
			counters.duplicated++
			log.Debug("Lead already inserted concurrently", zap.String("phone_number", phoneNumber))
			return
		}
		counters.errored++
		counters.errors = append(counters.errors,
			fmt.Sprintf("lead %s: %v", leadRef(record), saveErr))
		return
	}
	counters.imported++
	log.Debug("Imported new lead",
		zap.String("phone_number", phoneNumber),
		zap.Time("contact_schedule", schedule))
}

// classifyRun derives the run status from the counters.
func classifyRun(counters *runCounters, fatalErr error) string {
	if fatalErr != nil {
		return model.ImportStatusError
	}
	switch {
	case counters.errored > 0 && counters.imported+counters.updated > 0:
		return model.ImportStatusPartial
	case counters.processed > 0 && counters.errored == counters.processed:
		return model.ImportStatusError
	default:
		return model.ImportStatusSuccess
	}
}

// buildRun assembles the audit record for one finished (or failed) run.
func (s *ImportService) buildRun(
	cfg *model.SourceConfig,
	runKind, status string,
	counters *runCounters,
	startedAt, completedAt time.Time,
	fatalErr error,
) *model.ImportRun {
	run := &model.ImportRun{
		ID:          uuid.New().String(),
		ConfigID:    cfg.ID,
		CompanyID:   cfg.CompanyID,
		RunKind:     runKind,
		Status:      status,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
	}

	if fatalErr != nil {
		run.ErrorMessage = fatalErr.Error()
		run.ErrorDetails = datatypes.JSON(utils.MustMarshalJSON(map[string]interface{}{
			"apiError": fatalErr.Error(),
		}))
		return run
	}

	run.LeadsProcessed = counters.processed
	run.LeadsImported = counters.imported
	run.LeadsUpdated = counters.updated
	run.LeadsDuplicated = counters.duplicated
	run.LeadsErrored = counters.errored
	run.LeadsSkipped = counters.skipped
	if len(counters.errors) > 0 {
		run.ErrorMessage = strings.Join(counters.errors, "; ")
		failed := make([]map[string]string, 0, len(counters.errors))
		for _, e := range counters.errors {
			failed = append(failed, map[string]string{"error": e})
		}
		run.ErrorDetails = datatypes.JSON(utils.MustMarshalJSON(map[string]interface{}{
			"failedLeads": failed,
		}))
	}
	return run
}

// finalizeRun persists the audit record, patches config health, records
// metrics and emits the run-completed event. Persistence failures here are
// logged, not returned: the import outcome already stands.
func (s *ImportService) finalizeRun(ctx context.Context, cfg *model.SourceConfig, run *model.ImportRun, log *zap.Logger) {
	if err := s.runs.Save(ctx, run); err != nil {
		log.Error("Failed to persist import run audit record", zap.Error(err))
	}

	firstError := ""
	if run.ErrorMessage != "" {
		firstError = strings.SplitN(run.ErrorMessage, "; ", 2)[0]
	}
	patch := model.ImportHealthPatch{
		LastImportAt:           *run.CompletedAt,
		LastImportStatus:       run.Status,
		LastImportLeadsCount:   run.LeadsImported + run.LeadsUpdated,
		LastImportErrorMessage: firstError,
	}
	if err := s.configs.UpdateHealth(ctx, cfg.ID, patch); err != nil {
		log.Error("Failed to patch source config health", zap.Error(err))
	}

	observer.IncImportRun(cfg.CompanyID, run.RunKind, run.Status)
	observer.AddLeadAction(cfg.CompanyID, "imported", run.LeadsImported)
	observer.AddLeadAction(cfg.CompanyID, "updated", run.LeadsUpdated)
	observer.AddLeadAction(cfg.CompanyID, "duplicated", run.LeadsDuplicated)
	observer.AddLeadAction(cfg.CompanyID, "errored", run.LeadsErrored)
	observer.AddLeadAction(cfg.CompanyID, "skipped", run.LeadsSkipped)
	observer.ObserveImportRunDuration(cfg.CompanyID, run.RunKind, time.Duration(run.DurationMs)*time.Millisecond)

	if s.publisher != nil {
		if err := s.publisher.PublishRunCompleted(ctx, run); err != nil {
			log.Warn("Failed to publish run-completed event", zap.Error(err))
		}
	}
}

// buildLeadInfo merges the record's explicit qualification data with the
// campaign and agent defaults. Detail fields only apply to marketing leads.
func buildLeadInfo(record model.ExternalLeadRecord, campaign *model.Campaign, agent *model.AgentConfig) model.LeadInfo {
	var explicit model.LeadInfo
	if record.Type == "marketing" && record.Details != nil {
		explicit.Objectives = record.AdditionalField("objectives")
		explicit.Desires = record.AdditionalField("desires")
		explicit.Hook = record.AdditionalField("hook")
	}

	var campaignObjectives, campaignDesires, campaignHook string
	if campaign != nil {
		campaignObjectives = campaign.DefaultObjectives
		campaignDesires = campaign.ImplicitDesires
		campaignHook = campaign.HookText
	}
	var agentObjectives, agentDesires, agentHook string
	if agent != nil {
		agentObjectives = agent.DefaultObjectives
		agentDesires = agent.DefaultDesires
		agentHook = agent.DefaultHook
	}

	return model.LeadInfo{
		Objectives: firstNonEmpty(explicit.Objectives, campaignObjectives, agentObjectives),
		Desires:    firstNonEmpty(explicit.Desires, campaignDesires, agentDesires),
		Hook:       firstNonEmpty(explicit.Hook, campaignHook, agentHook),
		Source:     strings.TrimSpace(record.Source),
	}
}

// leadRef identifies a record in error messages, preferring the upstream ID.
func leadRef(record model.ExternalLeadRecord) string {
	if record.ID != "" {
		return record.ID
	}
	return record.Phone
}
