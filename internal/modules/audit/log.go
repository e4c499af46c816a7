// Package audit provides the append-only audit trail for a workspace: every
// adjustment record and every decision transition, ordered by a monotonic
// sequence that is independent of wall-clock time.
package audit

import (
	"time"

	"forecastdesk/internal/domain"
)

// Kind classifies an audit entry. Adjustment entries reuse the domain
// adjustment kinds; decision transitions get their own kinds.
type Kind string

const (
	KindRangeAdjustment   = Kind(domain.KindRangeAdjustment)
	KindPointOverride     = Kind(domain.KindPointOverride)
	KindReset             = Kind(domain.KindReset)
	KindDecisionCreated   Kind = "decision_created"
	KindDecisionCompleted Kind = "decision_completed"
)

// Entry is one immutable line of the audit trail. Hour is -1 for decision
// transitions; Detail carries the decision label on transitions.
type Entry struct {
	Sequence      int64     `json:"sequence"`
	Timestamp     time.Time `json:"timestamp"`
	DecisionID    string    `json:"decision_id"`
	Kind          Kind      `json:"kind"`
	RecordID      string    `json:"record_id,omitempty"`
	Hour          int       `json:"hour"`
	PreviousValue float64   `json:"previous_value"`
	NewValue      float64   `json:"new_value"`
	Detail        string    `json:"detail,omitempty"`
}

// Filter narrows a history query. Zero values match everything.
type Filter struct {
	DecisionID string
	Kind       Kind
}

// Log is the append-only in-memory arena. Entries are stored flat with
// monotonic sequence numbers and indexed by decision id and kind; adjustment
// data is never duplicated inside decision objects.
//
// Log is not safe for concurrent use on its own; the owning workspace
// serializes access.
type Log struct {
	entries    []Entry
	byDecision map[string][]int
	byKind     map[Kind][]int
	nextSeq    int64
	sink       func(Entry)
}

// NewLog creates an empty audit log
func NewLog() *Log {
	return &Log{
		byDecision: make(map[string][]int),
		byKind:     make(map[Kind][]int),
		nextSeq:    1,
	}
}

// OnAppend registers a sink invoked with every stored entry, after it has its
// sequence. The workspace uses this to mirror the trail into audit.db.
func (l *Log) OnAppend(sink func(Entry)) {
	l.sink = sink
}

// Append assigns the next monotonic sequence to the entry and stores it.
// Returns the stored entry with its sequence filled in. Entries are never
// mutated or reordered after append.
func (l *Log) Append(entry Entry) Entry {
	entry.Sequence = l.nextSeq
	l.nextSeq++

	idx := len(l.entries)
	l.entries = append(l.entries, entry)
	l.byDecision[entry.DecisionID] = append(l.byDecision[entry.DecisionID], idx)
	l.byKind[entry.Kind] = append(l.byKind[entry.Kind], idx)

	if l.sink != nil {
		l.sink(entry)
	}
	return entry
}

// AppendAdjustment stores an adjustment record as an audit entry and returns
// the record with its assigned sequence.
func (l *Log) AppendAdjustment(rec domain.AdjustmentRecord) domain.AdjustmentRecord {
	entry := l.Append(Entry{
		Timestamp:     rec.Timestamp,
		DecisionID:    rec.DecisionID,
		Kind:          Kind(rec.Kind),
		RecordID:      rec.ID,
		Hour:          rec.Hour,
		PreviousValue: rec.PreviousValue,
		NewValue:      rec.NewValue,
	})
	rec.Sequence = entry.Sequence
	return rec
}

// AppendTransition stores a decision lifecycle event
func (l *Log) AppendTransition(kind Kind, decision domain.Decision, at time.Time) Entry {
	return l.Append(Entry{
		Timestamp:  at,
		DecisionID: decision.ID,
		Kind:       kind,
		Hour:       -1,
		Detail:     decision.Label,
	})
}

// Query returns a finite, ordered list of entries matching the filter. Each
// call recomputes from the full immutable log; the result is a fresh slice
// the caller may keep.
func (l *Log) Query(filter Filter) []Entry {
	indices := l.candidateIndices(filter)

	result := make([]Entry, 0, len(indices))
	for _, idx := range indices {
		e := l.entries[idx]
		if filter.DecisionID != "" && e.DecisionID != filter.DecisionID {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		result = append(result, e)
	}
	return result
}

// candidateIndices picks the narrower index when a filter field is set.
// Index slices are built in append order, so results stay sequence-ordered.
func (l *Log) candidateIndices(filter Filter) []int {
	switch {
	case filter.DecisionID != "":
		return l.byDecision[filter.DecisionID]
	case filter.Kind != "":
		return l.byKind[filter.Kind]
	default:
		all := make([]int, len(l.entries))
		for i := range l.entries {
			all[i] = i
		}
		return all
	}
}

// Len returns the number of entries appended so far
func (l *Log) Len() int {
	return len(l.entries)
}
