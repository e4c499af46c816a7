// Package workspace binds one prediction series, one decision ledger, and one
// audit log into the per-session operation surface of the engine.
//
// Every mutating operation executes as one atomic step behind the workspace
// mutex; reads always see fully committed state. Workspaces are fully
// independent of each other - there is no cross-workspace shared mutable
// state.
package workspace

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/events"
	"forecastdesk/internal/modules/adjustment"
	"forecastdesk/internal/modules/audit"
	"forecastdesk/internal/modules/decisions"
	"forecastdesk/internal/modules/series"
	"forecastdesk/internal/modules/solver"
)

// AuditPersister mirrors the in-memory trail into durable storage. Persistence
// failures are logged, never surfaced - the in-memory state is authoritative
// within a session.
type AuditPersister interface {
	AppendEntry(workspaceID string, e audit.Entry) error
	SaveDecision(workspaceID string, d domain.Decision) error
}

// SnapshotCacher stores the latest snapshot per workspace so a reconnecting
// UI can warm-start without replaying the trail.
type SnapshotCacher interface {
	Save(snapshot domain.Snapshot) error
	Delete(workspaceID string) error
}

// Workspace is one operator session over one target day
type Workspace struct {
	mu sync.Mutex

	id       string
	series   *series.Series
	engine   *adjustment.Engine
	solver   *solver.Solver
	ledger   *decisions.Ledger
	auditLog *audit.Log

	persister AuditPersister // may be nil
	cache     SnapshotCacher // may be nil
	bus       *events.Bus    // may be nil
	log       zerolog.Logger

	lastActivity time.Time
}

// newWorkspace wires a workspace around an already-validated series.
// Construction goes through the Manager.
func newWorkspace(
	id string,
	ser *series.Series,
	engine *adjustment.Engine,
	solv *solver.Solver,
	persister AuditPersister,
	cache SnapshotCacher,
	bus *events.Bus,
	log zerolog.Logger,
) *Workspace {
	auditLog := audit.NewLog()
	wlog := log.With().Str("service", "workspace").Str("workspace_id", id).Logger()

	w := &Workspace{
		id:           id,
		series:       ser,
		engine:       engine,
		solver:       solv,
		ledger:       decisions.NewLedger(auditLog, wlog),
		auditLog:     auditLog,
		persister:    persister,
		cache:        cache,
		bus:          bus,
		log:          wlog,
		lastActivity: time.Now().UTC(),
	}

	if persister != nil {
		auditLog.OnAppend(func(e audit.Entry) {
			if err := persister.AppendEntry(id, e); err != nil {
				wlog.Error().Err(err).Int64("sequence", e.Sequence).Msg("Failed to persist audit entry")
			}
		})
	}
	return w
}

// ID returns the workspace id
func (w *Workspace) ID() string {
	return w.id
}

// TargetDate returns the day this workspace's series covers
func (w *Workspace) TargetDate() string {
	return w.series.TargetDate()
}

// LastActivity returns the time of the last operation, for idle cleanup
func (w *Workspace) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActivity
}

// CreateDecision validates the justification and activates a new decision,
// auto-completing any currently active one.
func (w *Workspace) CreateDecision(label, rationale string) (domain.Decision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	prior, hadPrior := w.ledger.Active()

	d, err := w.ledger.Create(label, rationale)
	if err != nil {
		return domain.Decision{}, err
	}

	w.persistDecision(d)
	if hadPrior {
		// The predecessor was auto-completed as a side effect
		if completed, ok := w.ledger.Get(prior.ID); ok {
			w.persistDecision(completed)
		}
	}
	w.publish(events.DecisionChanged, d)
	return d, nil
}

// CompleteDecision transitions the active decision to completed
func (w *Workspace) CompleteDecision(id string) (domain.Decision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	d, err := w.ledger.Complete(id)
	if err != nil {
		return domain.Decision{}, err
	}
	w.persistDecision(d)
	w.publish(events.DecisionChanged, d)
	return d, nil
}

// ActiveDecision returns the currently active decision, if any
func (w *Workspace) ActiveDecision() (domain.Decision, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.Active()
}

// Decision returns a decision by id
func (w *Workspace) Decision(id string) (domain.Decision, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.Get(id)
}

// Decisions returns all decisions in creation order
func (w *Workspace) Decisions() []domain.Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ledger.All()
}

// ApplyGlobalAdjustment applies a percentage shift across an hour range under
// the active decision and returns the resulting snapshot.
func (w *Workspace) ApplyGlobalAdjustment(req domain.GlobalAdjustmentRequest) (domain.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	return w.applyAdjustment(func() ([]domain.AdjustmentRecord, error) {
		return w.engine.ApplyGlobal(w.series, req)
	}, func() error {
		return w.engine.ValidateGlobal(req)
	})
}

// ApplyLocalAdjustment applies point overrides under the active decision and
// returns the resulting snapshot.
func (w *Workspace) ApplyLocalAdjustment(reqs []domain.LocalAdjustmentRequest) (domain.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	return w.applyAdjustment(func() ([]domain.AdjustmentRecord, error) {
		return w.engine.ApplyLocal(w.series, reqs)
	}, func() error {
		return w.engine.ValidateLocal(reqs)
	})
}

// ApplyMixedAdjustment applies a global adjustment followed by local
// overrides in one atomic step. Locals win for their hours.
func (w *Workspace) ApplyMixedAdjustment(global *domain.GlobalAdjustmentRequest, locals []domain.LocalAdjustmentRequest) (domain.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	return w.applyAdjustment(func() ([]domain.AdjustmentRecord, error) {
		return w.engine.ApplyMixed(w.series, global, locals)
	}, func() error {
		if global == nil && len(locals) == 0 {
			return domain.NewValidationError("mixed adjustment needs a global request, local requests, or both")
		}
		if global != nil {
			if err := w.engine.ValidateGlobal(*global); err != nil {
				return err
			}
		}
		if len(locals) > 0 {
			return w.engine.ValidateLocal(locals)
		}
		return nil
	})
}

// applyAdjustment runs the shared gate-validate-mutate-record pipeline.
// Ordering matters: the request is validated and the active decision checked
// before the series is touched, so a rejected request leaves both the series
// and the audit log exactly as they were.
func (w *Workspace) applyAdjustment(apply func() ([]domain.AdjustmentRecord, error), validate func() error) (domain.Snapshot, error) {
	if err := validate(); err != nil {
		return domain.Snapshot{}, err
	}
	active, ok := w.ledger.Active()
	if !ok {
		return domain.Snapshot{}, domain.NewNoActiveDecisionError("no active decision")
	}

	records, err := apply()
	if err != nil {
		return domain.Snapshot{}, err
	}
	for _, rec := range records {
		if _, err := w.ledger.RecordAdjustment(active.ID, rec); err != nil {
			// Unreachable while the lock is held; surface it rather than lose audit
			return domain.Snapshot{}, err
		}
	}
	return w.commitSnapshot(), nil
}

// ResetAdjustments restores every hour to its baseline. When nothing deviates
// the reset is a pure no-op and needs no decision; otherwise the reset
// records are gated behind the active decision like any other mutation.
func (w *Workspace) ResetAdjustments() (domain.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	adjusted := false
	for h := 0; h < domain.HoursPerDay; h++ {
		if w.series.IsAdjusted(h) {
			adjusted = true
			break
		}
	}
	if !adjusted {
		return w.snapshotLocked(), nil
	}

	active, ok := w.ledger.Active()
	if !ok {
		return domain.Snapshot{}, domain.NewNoActiveDecisionError("no active decision to record the reset under")
	}

	records := w.engine.Reset(w.series)
	for _, rec := range records {
		if _, err := w.ledger.RecordAdjustment(active.ID, rec); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return w.commitSnapshot(), nil
}

// OptimizeAdjustment solves for the global percentage hitting a target
// aggregate. Read-only: the caller decides whether to apply the result.
func (w *Workspace) OptimizeAdjustment(targetTotal float64, hours []int) (domain.OptimizeResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	return w.solver.Optimize(w.series, targetTotal, hours)
}

// Snapshot returns the current state of all 24 points
func (w *Workspace) Snapshot() domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// History returns audit entries matching the filter, ordered by sequence
func (w *Workspace) History(filter audit.Filter) []audit.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.auditLog.Query(filter)
}

// Export assembles the full downloadable audit trail
func (w *Workspace) Export() audit.Export {
	w.mu.Lock()
	defer w.mu.Unlock()
	return audit.BuildExport(w.id, w.series.TargetDate(), w.ledger.All(), w.auditLog.Query(audit.Filter{}))
}

// snapshotLocked stamps the workspace id onto the series snapshot.
// Caller must hold the mutex.
func (w *Workspace) snapshotLocked() domain.Snapshot {
	snap := w.series.Snapshot()
	snap.WorkspaceID = w.id
	return snap
}

// commitSnapshot caches and publishes the post-mutation snapshot
func (w *Workspace) commitSnapshot() domain.Snapshot {
	snap := w.snapshotLocked()
	if w.cache != nil {
		if err := w.cache.Save(snap); err != nil {
			w.log.Error().Err(err).Msg("Failed to cache snapshot")
		}
	}
	w.publish(events.SnapshotUpdated, snap)
	return snap
}

func (w *Workspace) publish(eventType events.EventType, data interface{}) {
	if w.bus != nil {
		w.bus.Publish(eventType, data)
	}
}

func (w *Workspace) touch() {
	w.lastActivity = time.Now().UTC()
}

func (w *Workspace) persistDecision(d domain.Decision) {
	if w.persister == nil {
		return
	}
	if err := w.persister.SaveDecision(w.id, d); err != nil {
		w.log.Error().Err(err).Str("decision_id", d.ID).Msg("Failed to persist decision")
	}
}
