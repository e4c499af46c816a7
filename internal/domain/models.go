// Package domain provides core domain models and types.
package domain

import "time"

// HoursPerDay is the number of hourly points in one forecast day.
// Every series covers exactly one target day, hour 0 through 23.
const HoursPerDay = 24

// DefaultPercentageCap is the upper bound for global adjustment percentages.
// Requests outside (0, cap] are rejected; the solver clamps to it instead.
const DefaultPercentageCap = 50.0

// Direction indicates whether a global adjustment raises or lowers the forecast
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Sign returns +1 for increase, -1 for decrease
func (d Direction) Sign() float64 {
	if d == DirectionDecrease {
		return -1
	}
	return 1
}

// Valid reports whether the direction is one of the two known values
func (d Direction) Valid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// AdjustmentKind classifies how an hour's value was changed
type AdjustmentKind string

const (
	// KindRangeAdjustment is a percentage shift applied across a contiguous hour range
	KindRangeAdjustment AdjustmentKind = "range_adjustment"
	// KindPointOverride is an absolute replacement value for a single hour
	KindPointOverride AdjustmentKind = "point_override"
	// KindReset restores an hour to its baseline value
	KindReset AdjustmentKind = "reset"
)

// DecisionStatus represents the lifecycle state of a decision.
// There is no cancelled state - a decision is Active until it is Completed,
// and Completed is terminal.
type DecisionStatus string

const (
	DecisionActive    DecisionStatus = "active"
	DecisionCompleted DecisionStatus = "completed"
)

// MinJustificationLen is the minimum length for decision labels and rationales
const MinJustificationLen = 10

// PredictionPoint is one hour of the forecast: the immutable baseline from the
// forecasting model, the operator-adjusted current value, and the model's
// confidence bounds.
type PredictionPoint struct {
	Hour            int     `json:"hour"`
	Baseline        float64 `json:"baseline"`
	Current         float64 `json:"current"`
	Delta           float64 `json:"delta"`
	IsAdjusted      bool    `json:"is_adjusted"`
	ConfidenceLower float64 `json:"confidence_lower"`
	ConfidenceUpper float64 `json:"confidence_upper"`
}

// ConfidenceBound is a (lower, upper) confidence pair for one hour
type ConfidenceBound struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Snapshot is an immutable copy of all 24 points of a series, produced after
// every successful mutation. This is the only read surface exposed to
// rendering and export collaborators.
type Snapshot struct {
	WorkspaceID string            `json:"workspace_id"`
	TargetDate  string            `json:"target_date"` // YYYY-MM-DD
	GeneratedAt time.Time         `json:"generated_at"`
	Points      []PredictionPoint `json:"points"`
}

// AdjustedTotal returns the sum of current values over all hours
func (s Snapshot) AdjustedTotal() float64 {
	var total float64
	for _, p := range s.Points {
		total += p.Current
	}
	return total
}

// Decision is an operator-authored, justified unit of work that gates and
// groups adjustments. It exclusively owns its adjustment records.
type Decision struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Rationale   string         `json:"rationale"`
	Status      DecisionStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	RecordIDs   []string       `json:"record_ids"`
}

// AdjustmentRecord is one committed change to one hour. Immutable once written.
// Sequence is assigned by the audit log on append and orders the trail
// independently of wall-clock time.
type AdjustmentRecord struct {
	ID            string         `json:"id"`
	DecisionID    string         `json:"decision_id"`
	Hour          int            `json:"hour"`
	PreviousValue float64        `json:"previous_value"`
	NewValue      float64        `json:"new_value"`
	Kind          AdjustmentKind `json:"kind"`
	Timestamp     time.Time      `json:"timestamp"`
	Sequence      int64          `json:"sequence"`
}

// GlobalAdjustmentRequest shifts a contiguous hour range by a percentage of
// each hour's baseline.
type GlobalAdjustmentRequest struct {
	StartHour  int       `json:"start_hour"`
	EndHour    int       `json:"end_hour"`
	Direction  Direction `json:"direction"`
	Percentage float64   `json:"percentage"` // in (0, cap]
}

// LocalAdjustmentRequest replaces a single hour's current value outright
type LocalAdjustmentRequest struct {
	Hour     int     `json:"hour"`
	NewValue float64 `json:"new_value"` // must be > 0
}

// OptimizeRequest asks the solver for the global percentage that makes the
// selected hours sum to TargetTotal.
type OptimizeRequest struct {
	TargetTotal float64 `json:"target_total"`
	Hours       []int   `json:"hours"`
}

// OptimizeResult is the solver's answer. Exact is false when the required
// percentage exceeded the cap and was clamped - callers must surface this,
// never drop it.
type OptimizeResult struct {
	Percentage     float64   `json:"percentage"`
	Direction      Direction `json:"direction"`
	Exact          bool      `json:"exact"`
	ProjectedTotal float64   `json:"projected_total"`
	Warning        string    `json:"warning,omitempty"`
}

// ForecastIntake is the one-shot payload from the forecasting collaborator
// that seeds a workspace: 24 baseline values plus 24 confidence pairs for a
// single target date.
type ForecastIntake struct {
	TargetDate string            `json:"target_date"`
	Baseline   []float64         `json:"baseline"`
	Confidence []ConfidenceBound `json:"confidence"`
}
