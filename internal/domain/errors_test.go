package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewValidationError("percentage %0.1f outside (0, %0.1f]", 62.5, 50.0)
	assert.Equal(t, "validation_error: percentage 62.5 outside (0, 50.0]", err.Error())
}

func TestKindOf(t *testing.T) {
	t.Run("direct domain error", func(t *testing.T) {
		kind, ok := KindOf(NewNoActiveDecisionError("no active decision"))
		require.True(t, ok)
		assert.Equal(t, ErrNoActiveDecision, kind)
	})

	t.Run("wrapped domain error", func(t *testing.T) {
		wrapped := fmt.Errorf("applying adjustment: %w", NewValidationError("hour 25 out of range"))
		kind, ok := KindOf(wrapped)
		require.True(t, ok)
		assert.Equal(t, ErrValidation, kind)
	})

	t.Run("non-domain error", func(t *testing.T) {
		_, ok := KindOf(errors.New("disk full"))
		assert.False(t, ok)
	})
}

func TestErrorIsMatchesOnKind(t *testing.T) {
	err := NewInvalidStateTransitionError("decision %s already completed", "abc")
	assert.True(t, errors.Is(err, &Error{Kind: ErrInvalidStateTransition}))
	assert.False(t, errors.Is(err, &Error{Kind: ErrValidation}))
}

func TestDirectionSign(t *testing.T) {
	assert.Equal(t, 1.0, DirectionIncrease.Sign())
	assert.Equal(t, -1.0, DirectionDecrease.Sign())
	assert.True(t, DirectionIncrease.Valid())
	assert.False(t, Direction("sideways").Valid())
}
