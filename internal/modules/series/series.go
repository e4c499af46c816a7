// Package series holds the 24-hour prediction series for one target day.
// The series is the single mutable artifact of a workspace: baselines and
// confidence bounds are frozen at creation, only current values move.
package series

import (
	"time"

	"forecastdesk/internal/domain"
)

// Series is an ordered mapping of hour to prediction point covering exactly
// the 24 hours of one target day. It is mutated only through the adjustment
// engine and never destroyed mid-session, only replaced by re-initialization.
//
// Series is not safe for concurrent use on its own; the owning workspace
// serializes access.
type Series struct {
	targetDate string
	points     [domain.HoursPerDay]domain.PredictionPoint
}

// New builds a series from the forecasting collaborator's output.
// Current values start equal to baselines.
//
// Returns a ValidationError when fewer or more than 24 baseline values or
// confidence pairs are supplied, or when any confidence bound has
// lower > upper.
func New(targetDate string, baseline []float64, confidence []domain.ConfidenceBound) (*Series, error) {
	if len(baseline) != domain.HoursPerDay {
		return nil, domain.NewValidationError("baseline must have exactly %d values, got %d", domain.HoursPerDay, len(baseline))
	}
	if len(confidence) != domain.HoursPerDay {
		return nil, domain.NewValidationError("confidence must have exactly %d pairs, got %d", domain.HoursPerDay, len(confidence))
	}
	for h, c := range confidence {
		if c.Lower > c.Upper {
			return nil, domain.NewValidationError("confidence bound for hour %d has lower %0.2f > upper %0.2f", h, c.Lower, c.Upper)
		}
	}

	s := &Series{targetDate: targetDate}
	for h := 0; h < domain.HoursPerDay; h++ {
		s.points[h] = domain.PredictionPoint{
			Hour:            h,
			Baseline:        baseline[h],
			Current:         baseline[h],
			ConfidenceLower: confidence[h].Lower,
			ConfidenceUpper: confidence[h].Upper,
		}
	}
	return s, nil
}

// TargetDate returns the day this series covers (YYYY-MM-DD)
func (s *Series) TargetDate() string {
	return s.targetDate
}

// Baseline returns the immutable baseline value for an hour.
// Panics on out-of-range hours - callers validate first.
func (s *Series) Baseline(hour int) float64 {
	return s.points[hour].Baseline
}

// Current returns the current (possibly adjusted) value for an hour
func (s *Series) Current(hour int) float64 {
	return s.points[hour].Current
}

// IsAdjusted reports whether an hour currently deviates from its baseline
func (s *Series) IsAdjusted(hour int) bool {
	return s.points[hour].Current != s.points[hour].Baseline
}

// SetCurrent sets the current value for an hour and returns the previous
// value. Returns a ValidationError when the hour is out of range or the
// value is negative.
func (s *Series) SetCurrent(hour int, value float64) (float64, error) {
	if hour < 0 || hour >= domain.HoursPerDay {
		return 0, domain.NewValidationError("hour %d out of range [0, %d]", hour, domain.HoursPerDay-1)
	}
	if value < 0 {
		return 0, domain.NewValidationError("value %0.2f for hour %d must not be negative", value, hour)
	}
	prev := s.points[hour].Current
	s.points[hour].Current = value
	return prev, nil
}

// ResetAll restores every hour's current value to its baseline
func (s *Series) ResetAll() {
	for h := range s.points {
		s.points[h].Current = s.points[h].Baseline
	}
}

// Snapshot returns an immutable copy of all 24 points with derived delta and
// is-adjusted fields filled in. This is the only read surface exposed to
// rendering and export collaborators.
func (s *Series) Snapshot() domain.Snapshot {
	points := make([]domain.PredictionPoint, domain.HoursPerDay)
	for h, p := range s.points {
		p.Delta = p.Current - p.Baseline
		p.IsAdjusted = p.Delta != 0
		points[h] = p
	}
	return domain.Snapshot{
		TargetDate:  s.targetDate,
		GeneratedAt: time.Now().UTC(),
		Points:      points,
	}
}
