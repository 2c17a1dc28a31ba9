// Package handler exposes synchronization administration over REST.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idsync/internal/platform/middleware"
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
	"idsync/pkg/platform/httputil"
)

// Runner is the sync service surface the handler consumes.
type Runner interface {
	CreateConfig(ctx context.Context, cfg *models.SyncConfig) error
	GetConfig(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error)
	UpdateConfig(ctx context.Context, cfg *models.SyncConfig) error
	DeleteConfig(ctx context.Context, configID id.SyncConfigID) error
	ListConfigs(ctx context.Context) ([]*models.SyncConfig, error)
	Start(ctx context.Context, configID id.SyncConfigID) (*models.SyncLog, error)
	Stop(ctx context.Context, configID id.SyncConfigID) error
	ListLogs(ctx context.Context, configID id.SyncConfigID) ([]*models.SyncLog, error)
	ListItems(ctx context.Context, logID id.SyncLogID) ([]*models.SyncItemLog, error)
	ResolveItem(ctx context.Context, itemID id.SyncItemID) (*models.SyncItemLog, error)
}

// Handler wires the sync runner to chi routes.
type Handler struct {
	runner    Runner
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates the sync Handler.
func New(runner Runner, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	return &Handler{runner: runner, logger: logger, validator: validator}
}

// Register mounts the sync routes. Reads are open to the deployment network;
// mutations require a valid token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/sync", func(r chi.Router) {
		r.Use(middleware.RequestID)

		r.Get("/configs", h.handleListConfigs)
		r.Get("/configs/{configID}", h.handleGetConfig)
		r.Get("/configs/{configID}/logs", h.handleListLogs)
		r.Get("/logs/{logID}/items", h.handleListItems)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))
			r.Post("/configs", h.handleCreateConfig)
			r.Put("/configs/{configID}", h.handleUpdateConfig)
			r.Delete("/configs/{configID}", h.handleDeleteConfig)
			r.Post("/configs/{configID}/start", h.handleStart)
			r.Post("/configs/{configID}/stop", h.handleStop)
			r.Post("/items/{itemID}/resolve", h.handleResolveItem)
		})
	})
}

type configRequest struct {
	Name                 string `json:"name"`
	SystemID             string `json:"system_id"`
	EntityType           string `json:"entity_type"`
	CorrelationAttribute string `json:"correlation_attribute"`
	Reconciliation       bool   `json:"reconciliation"`
	Enabled              bool   `json:"enabled"`
	LinkedAction         string `json:"linked_action"`
	UnlinkedAction       string `json:"unlinked_action"`
	MissingEntityAction  string `json:"missing_entity_action"`
	MissingAccountAction string `json:"missing_account_action"`
}

type configResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	SystemID             string    `json:"system_id"`
	EntityType           string    `json:"entity_type"`
	CorrelationAttribute string    `json:"correlation_attribute"`
	Reconciliation       bool      `json:"reconciliation"`
	Enabled              bool      `json:"enabled"`
	Running              bool      `json:"running"`
	LinkedAction         string    `json:"linked_action"`
	UnlinkedAction       string    `json:"unlinked_action"`
	MissingEntityAction  string    `json:"missing_entity_action"`
	MissingAccountAction string    `json:"missing_account_action"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type logResponse struct {
	ID             string     `json:"id"`
	SyncConfigID   string     `json:"sync_config_id"`
	TransactionID  string     `json:"transaction_id"`
	State          string     `json:"state"`
	Started        time.Time  `json:"started"`
	Ended          *time.Time `json:"ended,omitempty"`
	Processed      int        `json:"processed"`
	Linked         int        `json:"linked"`
	Unlinked       int        `json:"unlinked"`
	MissingEntity  int        `json:"missing_entity"`
	MissingAccount int        `json:"missing_account"`
	Ignored        int        `json:"ignored"`
	Errors         int        `json:"errors"`
	ContainsError  bool       `json:"contains_error"`
	Message        string     `json:"message,omitempty"`
}

type itemResponse struct {
	ID        string    `json:"id"`
	SyncLogID string    `json:"sync_log_id"`
	Seq       int       `json:"seq"`
	UID       string    `json:"uid"`
	Situation string    `json:"situation"`
	Action    string    `json:"action,omitempty"`
	Result    string    `json:"result"`
	Message   string    `json:"message,omitempty"`
	AccountID *string   `json:"account_id,omitempty"`
	EntityID  *string   `json:"entity_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[configRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := req.toModel(id.SyncConfigID{})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.runner.CreateConfig(r.Context(), cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toConfigResponse(cfg))
}

func (h *Handler) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.runner.ListConfigs(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]configResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, toConfigResponse(cfg))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cfg, err := h.runner.GetConfig(r.Context(), configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[configRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := req.toModel(configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.runner.UpdateConfig(r.Context(), cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *Handler) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.runner.DeleteConfig(r.Context(), configID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	syncLog, err := h.runner.Start(r.Context(), configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toLogResponse(syncLog))
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.runner.Stop(r.Context(), configID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	configID, err := id.ParseSyncConfigID(chi.URLParam(r, "configID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	logs, err := h.runner.ListLogs(r.Context(), configID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]logResponse, 0, len(logs))
	for _, syncLog := range logs {
		out = append(out, toLogResponse(syncLog))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	logID, err := id.ParseSyncLogID(chi.URLParam(r, "logID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, err := h.runner.ListItems(r.Context(), logID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleResolveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := id.ParseSyncItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := h.runner.ResolveItem(r.Context(), itemID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toItemResponse(entry))
}

func (req configRequest) toModel(configID id.SyncConfigID) (*models.SyncConfig, error) {
	systemID, err := id.ParseSystemID(req.SystemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid system id")
	}
	entityType, err := id.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	return &models.SyncConfig{
		ID:                   configID,
		Name:                 req.Name,
		SystemID:             systemID,
		EntityType:           entityType,
		CorrelationAttribute: req.CorrelationAttribute,
		Reconciliation:       req.Reconciliation,
		Enabled:              req.Enabled,
		LinkedAction:         models.LinkedAction(req.LinkedAction),
		UnlinkedAction:       models.UnlinkedAction(req.UnlinkedAction),
		MissingEntityAction:  models.MissingEntityAction(req.MissingEntityAction),
		MissingAccountAction: models.MissingAccountAction(req.MissingAccountAction),
	}, nil
}

func toConfigResponse(cfg *models.SyncConfig) configResponse {
	return configResponse{
		ID:                   cfg.ID.String(),
		Name:                 cfg.Name,
		SystemID:             cfg.SystemID.String(),
		EntityType:           string(cfg.EntityType),
		CorrelationAttribute: cfg.CorrelationAttribute,
		Reconciliation:       cfg.Reconciliation,
		Enabled:              cfg.Enabled,
		Running:              cfg.Running,
		LinkedAction:         string(cfg.LinkedAction),
		UnlinkedAction:       string(cfg.UnlinkedAction),
		MissingEntityAction:  string(cfg.MissingEntityAction),
		MissingAccountAction: string(cfg.MissingAccountAction),
		CreatedAt:            cfg.CreatedAt,
		UpdatedAt:            cfg.UpdatedAt,
	}
}

func toLogResponse(syncLog *models.SyncLog) logResponse {
	return logResponse{
		ID:             syncLog.ID.String(),
		SyncConfigID:   syncLog.SyncConfigID.String(),
		TransactionID:  syncLog.TransactionID,
		State:          string(syncLog.State),
		Started:        syncLog.Started,
		Ended:          syncLog.Ended,
		Processed:      syncLog.Processed,
		Linked:         syncLog.Linked,
		Unlinked:       syncLog.Unlinked,
		MissingEntity:  syncLog.MissingEntity,
		MissingAccount: syncLog.MissingAccount,
		Ignored:        syncLog.Ignored,
		Errors:         syncLog.Errors,
		ContainsError:  syncLog.ContainsError,
		Message:        syncLog.Message,
	}
}

func toItemResponse(item *models.SyncItemLog) itemResponse {
	out := itemResponse{
		ID:        item.ID.String(),
		SyncLogID: item.SyncLogID.String(),
		Seq:       item.Seq,
		UID:       item.UID,
		Situation: string(item.Situation),
		Action:    item.Action,
		Result:    string(item.Result),
		Message:   item.Message,
		CreatedAt: item.CreatedAt,
	}
	if item.AccountID != nil {
		s := item.AccountID.String()
		out.AccountID = &s
	}
	if item.EntityID != nil {
		s := item.EntityID.String()
		out.EntityID = &s
	}
	return out
}
