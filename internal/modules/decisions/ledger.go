// Package decisions implements the decision ledger: the state machine that
// gates every series mutation behind an explicitly justified decision record.
//
// A decision is created active and transitions exactly once to completed,
// which is terminal. At most one decision is active at any time; creating a
// new one auto-completes its predecessor rather than rejecting the creation.
package decisions

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/audit"
)

// Ledger tracks all decisions of one workspace and enforces the
// single-active-decision invariant. Every transition and every recorded
// adjustment is appended to the workspace audit log.
//
// Ledger is not safe for concurrent use on its own; the owning workspace
// serializes access.
type Ledger struct {
	auditLog *audit.Log
	log      zerolog.Logger

	decisions map[string]*domain.Decision
	order     []string // creation order
	activeID  string   // empty when no decision is active
}

// NewLedger creates an empty decision ledger writing into the given audit log
func NewLedger(auditLog *audit.Log, log zerolog.Logger) *Ledger {
	return &Ledger{
		auditLog:  auditLog,
		log:       log.With().Str("service", "decisions").Logger(),
		decisions: make(map[string]*domain.Decision),
	}
}

// Create validates the justification, auto-completes any currently active
// decision, and activates a new one. The single-active invariant is enforced
// by construction, never by rejecting the new creation.
func (l *Ledger) Create(label, rationale string) (domain.Decision, error) {
	if len(strings.TrimSpace(label)) < domain.MinJustificationLen {
		return domain.Decision{}, domain.NewValidationError("label must be at least %d characters", domain.MinJustificationLen)
	}
	if len(strings.TrimSpace(rationale)) < domain.MinJustificationLen {
		return domain.Decision{}, domain.NewValidationError("rationale must be at least %d characters", domain.MinJustificationLen)
	}

	now := time.Now().UTC()
	if l.activeID != "" {
		l.complete(l.decisions[l.activeID], now)
	}

	d := &domain.Decision{
		ID:        uuid.New().String(),
		Label:     label,
		Rationale: rationale,
		Status:    domain.DecisionActive,
		CreatedAt: now,
	}
	l.decisions[d.ID] = d
	l.order = append(l.order, d.ID)
	l.activeID = d.ID
	l.auditLog.AppendTransition(audit.KindDecisionCreated, *d, now)

	l.log.Info().Str("decision_id", d.ID).Str("label", d.Label).Msg("Decision created")

	return *d, nil
}

// Complete transitions the active decision to completed. Returns an
// InvalidStateTransitionError when id does not refer to the currently active
// decision - completed decisions are terminal and unknown ids cannot
// transition at all.
func (l *Ledger) Complete(id string) (domain.Decision, error) {
	d, ok := l.decisions[id]
	if !ok {
		return domain.Decision{}, domain.NewInvalidStateTransitionError("decision %s does not exist", id)
	}
	if d.Status != domain.DecisionActive || l.activeID != id {
		return domain.Decision{}, domain.NewInvalidStateTransitionError("decision %s is not the active decision", id)
	}

	l.complete(d, time.Now().UTC())
	return *d, nil
}

// complete performs the Active -> Completed transition and freezes the
// decision's adjustment list.
func (l *Ledger) complete(d *domain.Decision, at time.Time) {
	completedAt := at
	d.Status = domain.DecisionCompleted
	d.CompletedAt = &completedAt
	l.activeID = ""
	l.auditLog.AppendTransition(audit.KindDecisionCompleted, *d, at)

	l.log.Info().
		Str("decision_id", d.ID).
		Int("adjustments", len(d.RecordIDs)).
		Msg("Decision completed")
}

// Active returns a copy of the currently active decision, if any
func (l *Ledger) Active() (domain.Decision, bool) {
	if l.activeID == "" {
		return domain.Decision{}, false
	}
	return *l.decisions[l.activeID], true
}

// Get returns a copy of a decision by id
func (l *Ledger) Get(id string) (domain.Decision, bool) {
	d, ok := l.decisions[id]
	if !ok {
		return domain.Decision{}, false
	}
	return *d, true
}

// All returns copies of every decision in creation order
func (l *Ledger) All() []domain.Decision {
	result := make([]domain.Decision, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, *l.decisions[id])
	}
	return result
}

// RecordAdjustment gates an adjustment record behind the active decision,
// stamps it with an id, appends it to the audit log (which assigns the
// sequence), and attaches it to the decision's owned list.
//
// Returns a NoActiveDecisionError when there is no active decision or when
// decisionID does not match it - a completed decision's record list is
// frozen and can never grow.
func (l *Ledger) RecordAdjustment(decisionID string, rec domain.AdjustmentRecord) (domain.AdjustmentRecord, error) {
	if l.activeID == "" {
		return domain.AdjustmentRecord{}, domain.NewNoActiveDecisionError("no active decision")
	}
	if decisionID != l.activeID {
		return domain.AdjustmentRecord{}, domain.NewNoActiveDecisionError("decision %s is not the active decision", decisionID)
	}

	rec.ID = uuid.New().String()
	rec.DecisionID = decisionID
	rec = l.auditLog.AppendAdjustment(rec)

	d := l.decisions[decisionID]
	d.RecordIDs = append(d.RecordIDs, rec.ID)

	return rec, nil
}
