package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionState_Transitions(t *testing.T) {
	allowed := []struct{ from, to SessionState }{
		{StateIdle, StateRequestPending},
		{StateRequestPending, StateRequestPending},
		{StateRequestPending, StateGuiding},
		{StateRequestPending, StateIdle},
		{StateGuiding, StateCanceled},
		{StateGuiding, StateFinished},
		{StateCanceled, StateRequestPending},
		{StateFinished, StateRequestPending},
	}
	for _, tr := range allowed {
		assert.True(t, tr.from.CanTransitionTo(tr.to), "%s -> %s", tr.from, tr.to)
	}

	forbidden := []struct{ from, to SessionState }{
		{StateIdle, StateGuiding},
		{StateIdle, StateFinished},
		{StateCanceled, StateGuiding},
		{StateFinished, StateCanceled},
		{StateGuiding, StateIdle},
	}
	for _, tr := range forbidden {
		assert.False(t, tr.from.CanTransitionTo(tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestSessionState_Predicates(t *testing.T) {
	assert.True(t, StateCanceled.IsTerminal())
	assert.True(t, StateFinished.IsTerminal())
	assert.False(t, StateGuiding.IsTerminal())
	assert.True(t, StateGuiding.IsActive())
	assert.True(t, StateRequestPending.IsActive())
	assert.False(t, StateIdle.IsActive())
}

func TestParseSessionState(t *testing.T) {
	s, err := ParseSessionState("guiding")
	require.NoError(t, err)
	assert.Equal(t, StateGuiding, s)

	_, err = ParseSessionState("paused")
	assert.Error(t, err)
	assert.Len(t, AllSessionStates(), 5)
}
