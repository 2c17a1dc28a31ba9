// Package service drives synchronization runs: acquiring the run slot,
// streaming remote items through the resolver and executor, reconciling
// vanished accounts, and finalizing the run log no matter how the run ends.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idsync/internal/account"
	"idsync/internal/audit"
	"idsync/internal/connector"
	"idsync/internal/notification"
	"idsync/internal/notification/uniform"
	"idsync/internal/provisioning/event"
	"idsync/internal/sync/executor"
	"idsync/internal/sync/metrics"
	"idsync/internal/sync/models"
	"idsync/internal/sync/resolver"
	"idsync/internal/task"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
	"idsync/pkg/platform/sentinel"
	"idsync/pkg/runcontext"
)

// ConfigStore persists sync configurations and owns the running flag.
type ConfigStore interface {
	Create(ctx context.Context, cfg *models.SyncConfig) error
	Get(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error)
	Update(ctx context.Context, cfg *models.SyncConfig) error
	Delete(ctx context.Context, configID id.SyncConfigID) error
	List(ctx context.Context) ([]*models.SyncConfig, error)
	// TryAcquireRun atomically flips the running flag; sentinel.ErrConflict
	// when already running, sentinel.ErrInvalidState when disabled.
	TryAcquireRun(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error)
	// ReleaseRun clears the flag. Idempotent.
	ReleaseRun(ctx context.Context, configID id.SyncConfigID) error
	ListRunning(ctx context.Context) ([]*models.SyncConfig, error)
}

// RunLogStore persists run logs and their per-item entries.
type RunLogStore interface {
	CreateLog(ctx context.Context, syncLog *models.SyncLog) error
	UpdateLog(ctx context.Context, syncLog *models.SyncLog) error
	GetLog(ctx context.Context, logID id.SyncLogID) (*models.SyncLog, error)
	ListLogs(ctx context.Context, configID id.SyncConfigID) ([]*models.SyncLog, error)
	AppendItem(ctx context.Context, item *models.SyncItemLog) error
	GetItem(ctx context.Context, itemID id.SyncItemID) (*models.SyncItemLog, error)
	ListItems(ctx context.Context, logID id.SyncLogID) ([]*models.SyncItemLog, error)
}

// Transactor wraps one item's mutations in a transaction. The postgres pool
// implements it; NopTransactor serves the memory stores.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs fn directly.
type NopTransactor struct{}

func (NopTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// errRunCancelled stops the remote iteration when the cancel flag is raised.
var errRunCancelled = errors.New("run cancelled")

// SyncRunner executes synchronization runs, one goroutine per run.
type SyncRunner struct {
	configs   ConfigStore
	logs      RunLogStore
	accounts  account.AccountStore
	links     account.LinkStore
	resolver  *resolver.Resolver
	executors *executor.Cache
	conn      connector.Connector
	tx        Transactor

	passwords uniform.Buffer
	notifier  notification.Manager
	auditor   *audit.Emitter
	events    *event.Registry

	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	active map[id.SyncConfigID]*task.Host
}

type Option func(*SyncRunner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *SyncRunner) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *SyncRunner) { r.metrics = m }
}

func WithAuditor(a *audit.Emitter) Option {
	return func(r *SyncRunner) { r.auditor = a }
}

func WithNotifier(n notification.Manager) Option {
	return func(r *SyncRunner) { r.notifier = n }
}

func WithPasswordBuffer(b uniform.Buffer) Option {
	return func(r *SyncRunner) { r.passwords = b }
}

// WithEventRegistry wires the registry START/END/CANCEL events fire into.
func WithEventRegistry(reg *event.Registry) Option {
	return func(r *SyncRunner) { r.events = reg }
}

func NewSyncRunner(
	configs ConfigStore,
	logs RunLogStore,
	accounts account.AccountStore,
	links account.LinkStore,
	res *resolver.Resolver,
	executors *executor.Cache,
	conn connector.Connector,
	tx Transactor,
	opts ...Option,
) (*SyncRunner, error) {
	if configs == nil || logs == nil || accounts == nil || links == nil {
		return nil, errors.New("sync runner stores are required")
	}
	if res == nil || executors == nil || conn == nil {
		return nil, errors.New("resolver, executor cache and connector are required")
	}
	if tx == nil {
		tx = NopTransactor{}
	}
	r := &SyncRunner{
		configs:   configs,
		logs:      logs,
		accounts:  accounts,
		links:     links,
		resolver:  res,
		executors: executors,
		conn:      conn,
		tx:        tx,
		notifier:  notification.NewLogManager(nil),
		auditor:   audit.NewEmitter(nil),
		logger:    slog.Default(),
		tracer:    otel.Tracer("idsync/sync"),
		active:    make(map[id.SyncConfigID]*task.Host),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Start acquires the run slot for the config and launches the run in the
// background. Returns the created run log immediately; callers watch progress
// through the log endpoints. A second Start while running fails with
// SYNCHRONIZATION_IS_RUNNING.
func (r *SyncRunner) Start(ctx context.Context, configID id.SyncConfigID) (*models.SyncLog, error) {
	return r.StartTask(ctx, map[string]string{task.PropertySyncConfigID: configID.String()})
}

// StartTask enters a run through the task lifecycle from a raw property bag,
// the form schedulers hand over. Property validation and slot acquisition run
// before StartTask returns; the run itself continues in the background.
func (r *SyncRunner) StartTask(ctx context.Context, properties map[string]string) (*models.SyncLog, error) {
	t := &runTask{runner: r}
	// The run outlives the request; keep context values, drop its deadline.
	if _, err := task.Execute(context.WithoutCancel(ctx), t, properties); err != nil {
		return nil, err
	}
	return t.syncLog, nil
}

// runTask adapts a synchronization run to the task lifecycle: Init validates
// the config id property and claims the run slot, Process streams the remote
// system, End finalizes.
type runTask struct {
	runner  *SyncRunner
	cfg     *models.SyncConfig
	syncLog *models.SyncLog
}

func (t *runTask) Init(ctx context.Context, host *task.Host, properties map[string]string) error {
	configID, err := task.SyncConfigIDProperty(properties)
	if err != nil {
		return err
	}

	r := t.runner
	cfg, err := r.configs.TryAcquireRun(ctx, configID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeSyncNotFound, "synchronization configuration not found").
				WithParam("config", configID.String())
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeSyncIsRunning, "synchronization is already running").
				WithParam("config", configID.String())
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeInvalidInput, "synchronization configuration is disabled").
				WithParam("config", configID.String())
		default:
			return err
		}
	}

	syncLog := &models.SyncLog{
		ID:            id.NewSyncLogID(),
		SyncConfigID:  cfg.ID,
		TransactionID: host.TransactionID(),
		State:         models.RunStateRunning,
		Started:       host.Started(),
	}
	if err := r.logs.CreateLog(ctx, syncLog); err != nil {
		// Without a log the run cannot be tracked; back out the flag.
		if relErr := r.configs.ReleaseRun(ctx, configID); relErr != nil {
			r.logger.ErrorContext(ctx, "failed to release run flag after log create failure",
				"config_id", configID.String(), "error", relErr)
		}
		return err
	}

	r.mu.Lock()
	r.active[cfg.ID] = host
	r.mu.Unlock()

	r.fireEvent(ctx, event.TypeStart, syncLog)
	r.audit(ctx, audit.Event{
		Action:        audit.ActionRunStarted,
		TransactionID: host.TransactionID(),
		SyncConfigID:  cfg.ID.String(),
		SystemID:      cfg.SystemID.String(),
		RequestID:     runcontext.RequestID(ctx),
	})
	if r.metrics != nil {
		r.metrics.RunsActive.Inc()
	}

	t.cfg = cfg
	t.syncLog = syncLog
	return nil
}

func (t *runTask) Process(ctx context.Context, host *task.Host) error {
	ctx = t.runCtx(ctx, host)
	ctx, span := t.runner.tracer.Start(ctx, "sync.run",
		trace.WithAttributes(
			attribute.String("sync.config_id", t.cfg.ID.String()),
			attribute.String("sync.transaction_id", host.TransactionID()),
		))
	defer span.End()
	return t.runner.process(ctx, host, t.cfg, t.syncLog)
}

func (t *runTask) End(ctx context.Context, host *task.Host, processErr error) {
	t.runner.end(t.runCtx(ctx, host), host, t.cfg, t.syncLog, processErr)
}

// runCtx stamps the context with the run's identifiers so every log line and
// audit entry downstream carries them.
func (t *runTask) runCtx(ctx context.Context, host *task.Host) context.Context {
	ctx = runcontext.WithTransactionID(ctx, host.TransactionID())
	return runcontext.WithRunID(ctx, t.syncLog.ID.String())
}

// Stop raises the cooperative cancel flag. The in-flight item finishes, then
// the run finalizes as CANCELLED. Stopping a config with a stale running flag
// (no live run in this process) releases the flag and fails its open logs.
func (r *SyncRunner) Stop(ctx context.Context, configID id.SyncConfigID) error {
	r.mu.Lock()
	host, ok := r.active[configID]
	r.mu.Unlock()
	if ok {
		host.Cancel()
		return nil
	}

	cfg, err := r.configs.Get(ctx, configID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeSyncNotFound, "synchronization configuration not found").
				WithParam("config", configID.String())
		}
		return err
	}
	if !cfg.Running {
		return dErrors.New(dErrors.CodeInvalidInput, "synchronization is not running").
			WithParam("config", configID.String())
	}
	return r.recoverConfig(ctx, cfg, "stopped while no run was active")
}

// Running reports whether this process is executing a run for the config.
func (r *SyncRunner) Running(configID id.SyncConfigID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[configID]
	return ok
}

// process iterates the remote system and, when reconciliation is enabled,
// sweeps local accounts the remote no longer has.
func (r *SyncRunner) process(ctx context.Context, host *task.Host, cfg *models.SyncConfig, syncLog *models.SyncLog) error {
	seen := make(map[string]struct{})

	err := r.conn.Search(ctx, cfg.SystemID, func(item connector.Item) error {
		if host.Cancelled() {
			return errRunCancelled
		}
		seen[item.UID] = struct{}{}
		r.processItem(ctx, host, cfg, syncLog, item, nil)
		return nil
	})
	if err != nil {
		if errors.Is(err, errRunCancelled) {
			return errRunCancelled
		}
		return fmt.Errorf("remote iteration failed: %w", err)
	}

	if cfg.Reconciliation {
		if err := r.sweepMissingAccounts(ctx, host, cfg, syncLog, seen); err != nil {
			return err
		}
	}
	return nil
}

// sweepMissingAccounts flags local accounts whose UID the remote iteration
// never produced. Only runs for reconciliation-enabled configs.
func (r *SyncRunner) sweepMissingAccounts(ctx context.Context, host *task.Host, cfg *models.SyncConfig, syncLog *models.SyncLog, seen map[string]struct{}) error {
	local, err := r.accounts.ListBySystem(ctx, cfg.SystemID)
	if err != nil {
		return fmt.Errorf("list local accounts: %w", err)
	}
	for _, acc := range local {
		if host.Cancelled() {
			return errRunCancelled
		}
		if _, ok := seen[acc.UID]; ok {
			continue
		}
		if acc.EntityType != cfg.EntityType {
			continue
		}
		r.processItem(ctx, host, cfg, syncLog, connector.Item{UID: acc.UID}, acc)
	}
	return nil
}

// processItem handles one UID inside its own transaction. Item failures are
// recorded on the log and never escape.
func (r *SyncRunner) processItem(ctx context.Context, host *task.Host, cfg *models.SyncConfig, syncLog *models.SyncLog, item connector.Item, missing *account.Account) {
	ctx, span := r.tracer.Start(ctx, "sync.item",
		trace.WithAttributes(attribute.String("sync.uid", item.UID)))
	defer span.End()

	host.IncProcessed()
	syncLog.Processed++

	itemCtx := &models.ItemContext{
		SyncConfigID: cfg.ID,
		SyncLogID:    syncLog.ID,
		SystemID:     cfg.SystemID,
		EntityType:   cfg.EntityType,
		UID:          item.UID,
		Attributes:   item.Attributes,
	}

	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		if missing != nil {
			itemCtx.Situation = models.SituationMissingAccount
			itemCtx.AccountID = &missing.ID
			link, err := r.links.FindByAccount(ctx, missing.ID)
			if err != nil {
				return err
			}
			if link != nil {
				itemCtx.EntityID = &link.EntityID
			}
		} else if err := r.resolver.Resolve(ctx, cfg, itemCtx); err != nil {
			return err
		}

		outcome, err := r.executors.Get(cfg).Execute(ctx, itemCtx)
		if err != nil {
			return err
		}
		r.recordOutcome(ctx, syncLog, itemCtx, outcome)
		return nil
	})
	if err != nil {
		host.IncFailed()
		syncLog.Errors++
		syncLog.ContainsError = true
		r.appendItemLog(ctx, syncLog, itemCtx, "", models.ItemResultError, err.Error())
		r.observeItem(itemCtx.Situation, models.ItemResultError)
		r.logger.WarnContext(ctx, "item synchronization failed",
			"uid", item.UID, "config_id", cfg.ID.String(), "error", err)
	}

	if err := r.logs.UpdateLog(ctx, syncLog); err != nil {
		r.logger.WarnContext(ctx, "run log update failed",
			"sync_log_id", syncLog.ID.String(), "error", err)
	}
}

// recordOutcome bumps situation counters and appends the item entry, unless
// the action asked not to log.
func (r *SyncRunner) recordOutcome(ctx context.Context, syncLog *models.SyncLog, itemCtx *models.ItemContext, outcome executor.Outcome) {
	switch itemCtx.Situation {
	case models.SituationLinked:
		syncLog.Linked++
	case models.SituationUnlinked:
		syncLog.Unlinked++
	case models.SituationMissingEntity:
		syncLog.MissingEntity++
	case models.SituationMissingAccount:
		syncLog.MissingAccount++
	}
	if outcome.Result == models.ItemResultIgnored {
		syncLog.Ignored++
	}
	r.observeItem(itemCtx.Situation, outcome.Result)
	if !outcome.Logged {
		return
	}
	r.appendItemLog(ctx, syncLog, itemCtx, outcome.Action, outcome.Result, outcome.Message)
}

func (r *SyncRunner) appendItemLog(ctx context.Context, syncLog *models.SyncLog, itemCtx *models.ItemContext, action string, result models.ItemResult, message string) {
	entry := &models.SyncItemLog{
		ID:        id.NewSyncItemID(),
		SyncLogID: syncLog.ID,
		UID:       itemCtx.UID,
		Situation: itemCtx.Situation,
		Action:    action,
		Result:    result,
		Message:   message,
		AccountID: itemCtx.AccountID,
		EntityID:  itemCtx.EntityID,
		CreatedAt: time.Now(),
	}
	if err := r.logs.AppendItem(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "item log append failed",
			"sync_log_id", syncLog.ID.String(), "uid", itemCtx.UID, "error", err)
	}
}

// end finalizes the run: flushes deferred password handouts, closes the log,
// releases the running flag, fires END or CANCEL. Idempotent, and every step
// runs even when an earlier one fails.
func (r *SyncRunner) end(ctx context.Context, host *task.Host, cfg *models.SyncConfig, syncLog *models.SyncLog, processErr error) {
	r.mu.Lock()
	if _, ok := r.active[cfg.ID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.active, cfg.ID)
	r.mu.Unlock()

	r.flushPasswords(ctx, host.TransactionID())

	now := time.Now()
	syncLog.Ended = &now
	switch {
	case errors.Is(processErr, errRunCancelled):
		syncLog.State = models.RunStateCancelled
		syncLog.Message = "cancelled by operator"
	case processErr != nil:
		syncLog.State = models.RunStateFailed
		syncLog.ContainsError = true
		syncLog.Message = processErr.Error()
	default:
		syncLog.State = models.RunStateCompleted
	}
	if err := r.logs.UpdateLog(ctx, syncLog); err != nil {
		r.logger.ErrorContext(ctx, "run log finalization failed",
			"sync_log_id", syncLog.ID.String(), "error", err)
	}

	if err := r.configs.ReleaseRun(ctx, cfg.ID); err != nil {
		r.logger.ErrorContext(ctx, "failed to release running flag",
			"config_id", cfg.ID.String(), "error", err)
	}

	evType := event.TypeEnd
	auditAction := audit.ActionRunFinished
	if syncLog.State == models.RunStateCancelled {
		evType = event.TypeCancel
		auditAction = audit.ActionRunCancelled
	}
	r.fireEvent(ctx, evType, syncLog)
	r.audit(ctx, audit.Event{
		Action:        auditAction,
		TransactionID: host.TransactionID(),
		SyncConfigID:  cfg.ID.String(),
		SystemID:      cfg.SystemID.String(),
		Detail: fmt.Sprintf("state=%s processed=%d errors=%d",
			syncLog.State, syncLog.Processed, syncLog.Errors),
	})

	summary := fmt.Sprintf("synchronization %q finished with state %s: processed=%d errors=%d",
		cfg.Name, syncLog.State, syncLog.Processed, syncLog.Errors)
	if err := r.notifier.Send(ctx, notification.TopicSyncResult, summary, nil); err != nil {
		r.logger.WarnContext(ctx, "run result notification failed",
			"sync_log_id", syncLog.ID.String(), "error", err)
	}

	if r.metrics != nil {
		r.metrics.RunsActive.Dec()
		r.metrics.RunFinished(string(syncLog.State), now.Sub(syncLog.Started))
	}
	r.logger.InfoContext(ctx, "synchronization run finished",
		"config_id", cfg.ID.String(),
		"sync_log_id", syncLog.ID.String(),
		"state", string(syncLog.State),
		"processed", syncLog.Processed,
		"errors", syncLog.Errors,
	)
}

// flushPasswords drains the uniform password buffer for the run and sends one
// handout notification per created identity.
func (r *SyncRunner) flushPasswords(ctx context.Context, txID string) {
	if r.passwords == nil {
		return
	}
	err := r.passwords.Flush(ctx, txID, func(entry uniform.Entry) error {
		message := fmt.Sprintf("uniform password for identity %s covers systems: %v",
			entry.EntityID, entry.Systems)
		if err := r.notifier.Send(ctx, notification.TopicUniformPassword, message, nil); err != nil {
			return err
		}
		r.audit(ctx, audit.Event{
			Action:        audit.ActionPasswordHandout,
			TransactionID: txID,
			Subject:       entry.EntityID.String(),
		})
		return nil
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "uniform password flush failed",
			"transaction_id", txID, "error", err)
	}
}

// RecoverInterrupted releases running flags left behind by a crashed process
// and fails their open logs. Called once at startup, before the HTTP surface
// accepts traffic.
func (r *SyncRunner) RecoverInterrupted(ctx context.Context) error {
	stuck, err := r.configs.ListRunning(ctx)
	if err != nil {
		return err
	}
	for _, cfg := range stuck {
		if r.Running(cfg.ID) {
			continue
		}
		if err := r.recoverConfig(ctx, cfg, "interrupted by restart"); err != nil {
			return err
		}
	}
	return nil
}

func (r *SyncRunner) recoverConfig(ctx context.Context, cfg *models.SyncConfig, reason string) error {
	logs, err := r.logs.ListLogs(ctx, cfg.ID)
	if err != nil {
		return err
	}
	for _, syncLog := range logs {
		if syncLog.State != models.RunStateRunning {
			continue
		}
		now := time.Now()
		syncLog.State = models.RunStateFailed
		syncLog.ContainsError = true
		syncLog.Message = reason
		syncLog.Ended = &now
		if err := r.logs.UpdateLog(ctx, syncLog); err != nil {
			return err
		}
	}
	if err := r.configs.ReleaseRun(ctx, cfg.ID); err != nil {
		return err
	}
	r.audit(ctx, audit.Event{
		Action:       audit.ActionRunRecovered,
		SyncConfigID: cfg.ID.String(),
		Detail:       reason,
	})
	r.logger.InfoContext(ctx, "recovered interrupted synchronization",
		"config_id", cfg.ID.String(), "reason", reason)
	return nil
}

// ResolveItem re-processes one logged item out of band: the remote record is
// re-read and the item classified and executed again with the config's
// current actions. Used by operators fixing up ignored or failed items.
func (r *SyncRunner) ResolveItem(ctx context.Context, itemID id.SyncItemID) (*models.SyncItemLog, error) {
	item, err := r.logs.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	syncLog, err := r.logs.GetLog(ctx, item.SyncLogID)
	if err != nil {
		return nil, err
	}
	cfg, err := r.configs.Get(ctx, syncLog.SyncConfigID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSyncNotFound, "synchronization configuration not found").
				WithParam("config", syncLog.SyncConfigID.String())
		}
		return nil, err
	}

	remote, err := r.conn.ReadItem(ctx, cfg.SystemID, item.UID)
	if err != nil {
		return nil, err
	}

	itemCtx := &models.ItemContext{
		SyncConfigID: cfg.ID,
		SyncLogID:    syncLog.ID,
		SystemID:     cfg.SystemID,
		EntityType:   cfg.EntityType,
		UID:          item.UID,
	}

	var outcome executor.Outcome
	err = r.tx.InTx(ctx, func(ctx context.Context) error {
		if remote == nil {
			acc, err := r.accounts.FindByUID(ctx, cfg.SystemID, item.UID)
			if err != nil {
				return err
			}
			if acc == nil {
				return dErrors.New(dErrors.CodeNotFound, "item exists neither remotely nor locally").
					WithParam("uid", item.UID)
			}
			itemCtx.Situation = models.SituationMissingAccount
			itemCtx.AccountID = &acc.ID
			link, err := r.links.FindByAccount(ctx, acc.ID)
			if err != nil {
				return err
			}
			if link != nil {
				itemCtx.EntityID = &link.EntityID
			}
		} else {
			itemCtx.Attributes = remote.Attributes
			if err := r.resolver.Resolve(ctx, cfg, itemCtx); err != nil {
				return err
			}
		}
		var execErr error
		outcome, execErr = r.executors.Get(cfg).Execute(ctx, itemCtx)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	entry := &models.SyncItemLog{
		ID:        id.NewSyncItemID(),
		SyncLogID: syncLog.ID,
		UID:       itemCtx.UID,
		Situation: itemCtx.Situation,
		Action:    outcome.Action,
		Result:    outcome.Result,
		Message:   outcome.Message,
		AccountID: itemCtx.AccountID,
		EntityID:  itemCtx.EntityID,
		CreatedAt: time.Now(),
	}
	if err := r.logs.AppendItem(ctx, entry); err != nil {
		return nil, err
	}
	r.audit(ctx, audit.Event{
		Action:       audit.ActionItemResolved,
		SyncConfigID: cfg.ID.String(),
		Subject:      itemCtx.UID,
		Detail:       string(outcome.Result),
		RequestID:    runcontext.RequestID(ctx),
	})
	return entry, nil
}

func (r *SyncRunner) observeItem(situation models.Situation, result models.ItemResult) {
	if r.metrics != nil {
		r.metrics.ItemProcessed(string(situation), string(result))
	}
}

func (r *SyncRunner) fireEvent(ctx context.Context, evType event.Type, syncLog *models.SyncLog) {
	if r.events == nil {
		return
	}
	ev := &event.Event{
		ID:            id.NewOperationID(),
		Type:          evType,
		Content:       syncLog,
		TransactionID: syncLog.TransactionID,
	}
	if _, err := r.events.Process(ctx, ev); err != nil {
		r.logger.WarnContext(ctx, "lifecycle event processing failed",
			"type", string(evType), "sync_log_id", syncLog.ID.String(), "error", err)
	}
}

func (r *SyncRunner) audit(ctx context.Context, ev audit.Event) {
	if err := r.auditor.Emit(ctx, ev); err != nil {
		r.logger.WarnContext(ctx, "audit emit failed",
			"action", string(ev.Action), "error", err)
	}
}
