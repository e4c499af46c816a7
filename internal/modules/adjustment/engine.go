// Package adjustment implements the transformation algorithms that move a
// prediction series away from (and back to) its baseline.
//
// Deltas are overwritten per hour, never compounded:
//
//	current[h] = baseline[h] + delta[h]
//
// where delta[h] is replaced wholesale by whichever adjustment last targeted
// hour h. Repeating an identical request is therefore a no-op relative to the
// result, and the outcome of a range adjustment plus a point override depends
// only on which one ran last for each hour, not on how they were batched.
package adjustment

import (
	"time"

	"github.com/rs/zerolog"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/series"
)

// Engine applies bounded adjustments to a prediction series. It is stateless
// apart from its configuration; all state lives in the series itself.
type Engine struct {
	percentageCap float64
	log           zerolog.Logger
}

// NewEngine creates an adjustment engine.
// percentageCap bounds global adjustment percentages; zero means the default cap.
func NewEngine(percentageCap float64, log zerolog.Logger) *Engine {
	if percentageCap <= 0 {
		percentageCap = domain.DefaultPercentageCap
	}
	return &Engine{
		percentageCap: percentageCap,
		log:           log.With().Str("service", "adjustment").Logger(),
	}
}

// PercentageCap returns the configured upper bound for global percentages
func (e *Engine) PercentageCap() float64 {
	return e.percentageCap
}

// ValidateGlobal checks a global request without touching the series
func (e *Engine) ValidateGlobal(req domain.GlobalAdjustmentRequest) error {
	if req.StartHour < 0 || req.StartHour >= domain.HoursPerDay {
		return domain.NewValidationError("start hour %d out of range [0, %d]", req.StartHour, domain.HoursPerDay-1)
	}
	if req.EndHour < 0 || req.EndHour >= domain.HoursPerDay {
		return domain.NewValidationError("end hour %d out of range [0, %d]", req.EndHour, domain.HoursPerDay-1)
	}
	if req.StartHour > req.EndHour {
		return domain.NewValidationError("start hour %d after end hour %d", req.StartHour, req.EndHour)
	}
	if !req.Direction.Valid() {
		return domain.NewValidationError("unknown direction %q", req.Direction)
	}
	if req.Percentage <= 0 || req.Percentage > e.percentageCap {
		return domain.NewValidationError("percentage %0.2f outside (0, %0.2f]", req.Percentage, e.percentageCap)
	}
	return nil
}

// ValidateLocal checks a batch of local overrides without touching the series
func (e *Engine) ValidateLocal(reqs []domain.LocalAdjustmentRequest) error {
	if len(reqs) == 0 {
		return domain.NewValidationError("local adjustment batch is empty")
	}
	for _, req := range reqs {
		if req.Hour < 0 || req.Hour >= domain.HoursPerDay {
			return domain.NewValidationError("hour %d out of range [0, %d]", req.Hour, domain.HoursPerDay-1)
		}
		if req.NewValue <= 0 {
			return domain.NewValidationError("new value %0.2f for hour %d must be positive", req.NewValue, req.Hour)
		}
	}
	return nil
}

// ApplyGlobal shifts every hour in [StartHour, EndHour] by the requested
// percentage of that hour's baseline, overwriting any prior delta for those
// hours. One RangeAdjustment record is emitted per touched hour.
//
// Validation happens before any mutation - a rejected request leaves the
// series untouched.
func (e *Engine) ApplyGlobal(s *series.Series, req domain.GlobalAdjustmentRequest) ([]domain.AdjustmentRecord, error) {
	if err := e.ValidateGlobal(req); err != nil {
		return nil, err
	}

	// All target values are computed and checked before the first write, so a
	// rejected hour anywhere in the range leaves the series untouched.
	targets := make([]float64, 0, req.EndHour-req.StartHour+1)
	for h := req.StartHour; h <= req.EndHour; h++ {
		delta := s.Baseline(h) * req.Percentage / 100 * req.Direction.Sign()
		target := s.Baseline(h) + delta
		if target < 0 {
			return nil, domain.NewValidationError("adjusted value %0.2f for hour %d must not be negative", target, h)
		}
		targets = append(targets, target)
	}

	now := time.Now().UTC()
	records := make([]domain.AdjustmentRecord, 0, len(targets))
	for i, target := range targets {
		h := req.StartHour + i
		prev, err := s.SetCurrent(h, target)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.AdjustmentRecord{
			Hour:          h,
			PreviousValue: prev,
			NewValue:      s.Current(h),
			Kind:          domain.KindRangeAdjustment,
			Timestamp:     now,
		})
	}

	e.log.Debug().
		Int("start_hour", req.StartHour).
		Int("end_hour", req.EndHour).
		Str("direction", string(req.Direction)).
		Float64("percentage", req.Percentage).
		Msg("Applied global adjustment")

	return records, nil
}

// ApplyLocal replaces the current value of each requested hour outright,
// overwriting any prior delta for that hour. One PointOverride record is
// emitted per request; when the same hour appears twice the later request
// wins and both are recorded.
func (e *Engine) ApplyLocal(s *series.Series, reqs []domain.LocalAdjustmentRequest) ([]domain.AdjustmentRecord, error) {
	if err := e.ValidateLocal(reqs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]domain.AdjustmentRecord, 0, len(reqs))
	for _, req := range reqs {
		prev, err := s.SetCurrent(req.Hour, req.NewValue)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.AdjustmentRecord{
			Hour:          req.Hour,
			PreviousValue: prev,
			NewValue:      req.NewValue,
			Kind:          domain.KindPointOverride,
			Timestamp:     now,
		})
	}

	e.log.Debug().Int("overrides", len(reqs)).Msg("Applied local adjustments")

	return records, nil
}

// ApplyMixed applies a global adjustment followed by local overrides in one
// atomic step. The internal order is fixed - global first, locals second - so
// local overrides always win for their specific hours regardless of how the
// caller assembled the request. Both parts are validated up front; a failure
// in either rejects the whole request with the series untouched.
func (e *Engine) ApplyMixed(s *series.Series, global *domain.GlobalAdjustmentRequest, locals []domain.LocalAdjustmentRequest) ([]domain.AdjustmentRecord, error) {
	if global == nil && len(locals) == 0 {
		return nil, domain.NewValidationError("mixed adjustment needs a global request, local requests, or both")
	}
	if global != nil {
		if err := e.ValidateGlobal(*global); err != nil {
			return nil, err
		}
	}
	if len(locals) > 0 {
		if err := e.ValidateLocal(locals); err != nil {
			return nil, err
		}
	}

	var records []domain.AdjustmentRecord
	if global != nil {
		globalRecords, err := e.ApplyGlobal(s, *global)
		if err != nil {
			return nil, err
		}
		records = append(records, globalRecords...)
	}
	if len(locals) > 0 {
		localRecords, err := e.ApplyLocal(s, locals)
		if err != nil {
			return nil, err
		}
		records = append(records, localRecords...)
	}
	return records, nil
}

// Reset restores every hour to its baseline. One Reset record is emitted per
// previously-adjusted hour; hours already at baseline are not recorded, to
// keep the audit trail meaningful. Resetting a pristine series returns no
// records.
func (e *Engine) Reset(s *series.Series) []domain.AdjustmentRecord {
	now := time.Now().UTC()
	var records []domain.AdjustmentRecord
	for h := 0; h < domain.HoursPerDay; h++ {
		if !s.IsAdjusted(h) {
			continue
		}
		records = append(records, domain.AdjustmentRecord{
			Hour:          h,
			PreviousValue: s.Current(h),
			NewValue:      s.Baseline(h),
			Kind:          domain.KindReset,
			Timestamp:     now,
		})
	}
	s.ResetAll()

	e.log.Debug().Int("hours_reset", len(records)).Msg("Reset series to baseline")

	return records
}
