// Package solver derives the global adjustment percentage that makes a set of
// hours sum to a target aggregate.
//
// The adjusted total is affine in the percentage:
//
//	Σ baseline[h] × (1 + sign × p/100) = baseSum + sign × p/100 × baseSum
//
// so the solver computes p in closed form instead of searching.
package solver

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"forecastdesk/internal/domain"
	"forecastdesk/internal/modules/series"
)

// Solver computes adjustment parameters. It never mutates the series; callers
// feed its result into the adjustment engine.
type Solver struct {
	percentageCap float64
	log           zerolog.Logger
}

// New creates a solver. percentageCap bounds the returned percentage; zero
// means the default cap.
func New(percentageCap float64, log zerolog.Logger) *Solver {
	if percentageCap <= 0 {
		percentageCap = domain.DefaultPercentageCap
	}
	return &Solver{
		percentageCap: percentageCap,
		log:           log.With().Str("service", "solver").Logger(),
	}
}

// Optimize finds the single percentage and direction such that the sum of
// baseline[h] × (1 + sign × percentage/100) over the requested hours equals
// targetTotal.
//
// When the required percentage exceeds the cap the result is clamped and
// returned with Exact=false and a warning message - a best-effort answer is
// more useful to the operator than a hard failure, but callers must never
// drop the flag. Returns a DivisionByZeroError when the selected hours have a
// non-positive baseline sum, and a ValidationError for an empty, duplicated,
// or out-of-range hour set.
func (s *Solver) Optimize(ser *series.Series, targetTotal float64, hours []int) (domain.OptimizeResult, error) {
	if err := validateHours(hours); err != nil {
		return domain.OptimizeResult{}, err
	}

	baselines := make([]float64, len(hours))
	for i, h := range hours {
		baselines[i] = ser.Baseline(h)
	}
	baseSum := floats.Sum(baselines)
	// Covers the zero sum the formula cannot divide by, and negative sums
	// (possible with unchecked intake values) that would flip the percentage
	// sign and make direction meaningless.
	if baseSum <= 0 {
		return domain.OptimizeResult{}, domain.NewDivisionByZeroError("baseline sum %0.2f over %d selected hours is not positive", baseSum, len(hours))
	}

	requiredDelta := targetTotal - baseSum
	direction := domain.DirectionIncrease
	if requiredDelta < 0 {
		direction = domain.DirectionDecrease
	}

	percentage := math.Abs(requiredDelta) / baseSum * 100
	result := domain.OptimizeResult{
		Percentage: percentage,
		Direction:  direction,
		Exact:      true,
	}
	if percentage > s.percentageCap {
		result.Percentage = s.percentageCap
		result.Exact = false
		result.Warning = fmt.Sprintf(
			"target requires a %0.2f%% adjustment; clamped to the %0.2f%% cap",
			percentage, s.percentageCap,
		)
		s.log.Warn().
			Float64("required_percentage", percentage).
			Float64("cap", s.percentageCap).
			Msg("Optimization target unreachable within cap")
	}
	result.ProjectedTotal = baseSum * (1 + direction.Sign()*result.Percentage/100)

	s.log.Debug().
		Float64("target_total", targetTotal).
		Float64("base_sum", baseSum).
		Float64("percentage", result.Percentage).
		Str("direction", string(result.Direction)).
		Bool("exact", result.Exact).
		Msg("Solved adjustment parameter")

	return result, nil
}

// validateHours checks the hour set: non-empty, each in range, no duplicates
func validateHours(hours []int) error {
	if len(hours) == 0 {
		return domain.NewValidationError("hour set is empty")
	}
	seen := make(map[int]bool, len(hours))
	for _, h := range hours {
		if h < 0 || h >= domain.HoursPerDay {
			return domain.NewValidationError("hour %d out of range [0, %d]", h, domain.HoursPerDay-1)
		}
		if seen[h] {
			return domain.NewValidationError("hour %d appears more than once", h)
		}
		seen[h] = true
	}
	return nil
}
