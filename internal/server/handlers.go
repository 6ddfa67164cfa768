package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/source"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/tenant"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
)

// ConfigManager is the config CRUD surface. Satisfied by
// *usecase.ConfigService.
type ConfigManager interface {
	CreateConfig(ctx context.Context, cfg *model.SourceConfig) error
	UpdateConfig(ctx context.Context, cfg *model.SourceConfig) error
	GetConfig(ctx context.Context, id string) (*model.SourceConfig, error)
	ListConfigs(ctx context.Context, companyID string) ([]model.SourceConfig, error)
	DeleteConfig(ctx context.Context, id string) error
	ListRuns(ctx context.Context, configID string, limit int) ([]model.ImportRun, error)
}

// Importer is the import surface. Satisfied by *usecase.ImportService.
type Importer interface {
	Run(ctx context.Context, cfg *model.SourceConfig, runKind string) (*model.ImportRun, error)
	TestSourceConnection(ctx context.Context, cfg *model.SourceConfig) source.ConnectionResult
}

// PollingControl is the scheduler surface. Satisfied by
// *scheduler.PollingScheduler.
type PollingControl interface {
	StartPolling(ctx context.Context, configID string) error
	StopPolling(ctx context.Context, configID string)
}

// Handler provides the HTTP endpoints for source config management, manual
// imports and polling control.
type Handler struct {
	configs   ConfigManager
	importer  Importer
	scheduler PollingControl
}

// NewHandler creates the management API handler.
func NewHandler(configs ConfigManager, importer Importer, scheduler PollingControl) *Handler {
	return &Handler{
		configs:   configs,
		importer:  importer,
		scheduler: scheduler,
	}
}

// Routes returns the tenant-scoped router for the management API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateConfig)
	r.Get("/", h.ListConfigs)
	r.Route("/{configID}", func(r chi.Router) {
		r.Get("/", h.GetConfig)
		r.Put("/", h.UpdateConfig)
		r.Delete("/", h.DeleteConfig)
		r.Post("/test-connection", h.TestConnection)
		r.Post("/import", h.TriggerImport)
		r.Post("/polling/start", h.StartPolling)
		r.Post("/polling/stop", h.StopPolling)
		r.Get("/runs", h.ListRuns)
	})
	return r
}

// configRequest is the request body for creating or updating a config. The
// API key travels only inbound; responses never echo it.
type configRequest struct {
	ConfigName string `json:"config_name"`
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`

	LeadType       string `json:"lead_type,omitempty"`
	SourceFilter   string `json:"source_filter,omitempty"`
	CampaignFilter string `json:"campaign_filter,omitempty"`
	DaysFilter     string `json:"days_filter,omitempty"`

	TargetCampaignID string `json:"target_campaign_id,omitempty"`

	PollingEnabled         *bool `json:"polling_enabled,omitempty"`
	PollingIntervalMinutes *int  `json:"polling_interval_minutes,omitempty"`
	IsActive               *bool `json:"is_active,omitempty"`

	MaxLeadsPerImport   *int `json:"max_leads_per_import,omitempty"`
	ContactDelayMinutes *int `json:"contact_delay_minutes,omitempty"`
}

// apply overlays the provided fields onto a config. Filter fields are
// replaced as a group so an omitted filter clears it; an empty api_key keeps
// the stored credential.
func (req *configRequest) apply(cfg *model.SourceConfig) {
	if req.ConfigName != "" {
		cfg.ConfigName = req.ConfigName
	}
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	if req.APIKey != "" {
		cfg.APIKey = req.APIKey
	}
	if req.LeadType != "" {
		cfg.LeadType = req.LeadType
	}
	cfg.SourceFilter = req.SourceFilter
	cfg.CampaignFilter = req.CampaignFilter
	cfg.DaysFilter = req.DaysFilter
	cfg.TargetCampaignID = req.TargetCampaignID
	if req.PollingEnabled != nil {
		cfg.PollingEnabled = *req.PollingEnabled
	}
	if req.PollingIntervalMinutes != nil {
		cfg.PollingIntervalMinutes = *req.PollingIntervalMinutes
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.MaxLeadsPerImport != nil {
		cfg.MaxLeadsPerImport = *req.MaxLeadsPerImport
	}
	if req.ContactDelayMinutes != nil {
		cfg.ContactDelayMinutes = *req.ContactDelayMinutes
	}
}

// CreateConfig handles POST /source-configs
func (h *Handler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := tenant.MustFromContext(ctx)

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := &model.SourceConfig{
		CompanyID:              companyID,
		IsActive:               true,
		PollingIntervalMinutes: 5,
	}
	req.apply(cfg)

	if err := h.configs.CreateConfig(ctx, cfg); err != nil {
		writeError(w, err)
		return
	}

	if cfg.EligibleForPolling() {
		if err := h.scheduler.StartPolling(ctx, cfg.ID); err != nil {
			logger.FromContext(ctx).Error("Failed to start polling for new config",
				zap.String("config_id", cfg.ID), zap.Error(err))
		}
	}

	utils.WriteJSONResponse(w, http.StatusCreated, cfg)
}

// ListConfigs handles GET /source-configs
func (h *Handler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := tenant.MustFromContext(ctx)

	cfgs, err := h.configs.ListConfigs(ctx, companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, cfgs)
}

// GetConfig handles GET /source-configs/{configID}
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, cfg)
}

// UpdateConfig handles PUT /source-configs/{configID}
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.apply(cfg)

	if err := h.configs.UpdateConfig(ctx, cfg); err != nil {
		writeError(w, err)
		return
	}

	// Reconcile the scheduler with the updated flags and interval.
	if cfg.EligibleForPolling() {
		if err := h.scheduler.StartPolling(ctx, cfg.ID); err != nil {
			logger.FromContext(ctx).Error("Failed to reschedule polling",
				zap.String("config_id", cfg.ID), zap.Error(err))
		}
	} else {
		h.scheduler.StopPolling(ctx, cfg.ID)
	}

	utils.WriteJSONResponse(w, http.StatusOK, cfg)
}

// DeleteConfig handles DELETE /source-configs/{configID}
func (h *Handler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.scheduler.StopPolling(ctx, cfg.ID)
	if err := h.configs.DeleteConfig(ctx, cfg.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestConnection handles POST /source-configs/{configID}/test-connection
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	result := h.importer.TestSourceConnection(ctx, cfg)
	utils.WriteJSONResponse(w, http.StatusOK, result)
}

// TriggerImport handles POST /source-configs/{configID}/import
func (h *Handler) TriggerImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	run, runErr := h.importer.Run(ctx, cfg, model.RunKindManual)
	if run == nil {
		writeError(w, runErr)
		return
	}
	if runErr != nil || run.Status == model.ImportStatusError {
		utils.WriteJSONResponse(w, http.StatusInternalServerError, run)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, run)
}

// StartPolling handles POST /source-configs/{configID}/polling/start
func (h *Handler) StartPolling(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !cfg.IsActive {
		writeErrorMessage(w, http.StatusConflict, "config is inactive")
		return
	}

	cfg.PollingEnabled = true
	if err := h.configs.UpdateConfig(ctx, cfg); err != nil {
		writeError(w, err)
		return
	}
	if err := h.scheduler.StartPolling(ctx, cfg.ID); err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, cfg)
}

// StopPolling handles POST /source-configs/{configID}/polling/stop
func (h *Handler) StopPolling(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	cfg.PollingEnabled = false
	if err := h.configs.UpdateConfig(ctx, cfg); err != nil {
		writeError(w, err)
		return
	}
	h.scheduler.StopPolling(ctx, cfg.ID)
	utils.WriteJSONResponse(w, http.StatusOK, cfg)
}

// ListRuns handles GET /source-configs/{configID}/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := h.ownedConfig(ctx, chi.URLParam(r, "configID"))
	if err != nil {
		writeError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.configs.ListRuns(ctx, cfg.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, runs)
}

// ownedConfig fetches a config and verifies it belongs to the request tenant.
// Foreign configs are indistinguishable from missing ones.
func (h *Handler) ownedConfig(ctx context.Context, configID string) (*model.SourceConfig, error) {
	if configID == "" {
		return nil, apperrors.ErrBadRequest
	}
	cfg, err := h.configs.GetConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	companyID := tenant.MustFromContext(ctx)
	if cfg.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return cfg, nil
}
