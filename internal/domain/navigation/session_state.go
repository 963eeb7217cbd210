package navigation

import "fmt"

// SessionState is the lifecycle state of a navigation session.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateRequestPending SessionState = "request_pending"
	StateGuiding        SessionState = "guiding"
	StateCanceled       SessionState = "canceled"
	StateFinished       SessionState = "finished"
)

// validTransitions is the one authoritative transition table for sessions.
var validTransitions = map[SessionState][]SessionState{
	StateIdle:           {StateRequestPending, StateCanceled},
	StateRequestPending: {StateRequestPending, StateGuiding, StateIdle, StateCanceled},
	StateGuiding:        {StateRequestPending, StateCanceled, StateFinished},
	StateCanceled:       {StateRequestPending},
	StateFinished:       {StateRequestPending},
}

// IsValid returns true if the state is a recognized session state.
func (s SessionState) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if moving from s to target is allowed.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for canceled and finished, which only reconfiguration leaves.
func (s SessionState) IsTerminal() bool {
	return s == StateCanceled || s == StateFinished
}

// IsActive returns true while a route is being computed or followed.
func (s SessionState) IsActive() bool {
	return s == StateRequestPending || s == StateGuiding
}

// String returns the string representation of the state.
func (s SessionState) String() string {
	return string(s)
}

// ParseSessionState converts a string to a SessionState, returning an error if invalid.
func ParseSessionState(s string) (SessionState, error) {
	state := SessionState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid session state: %s", s)
	}
	return state, nil
}

// AllSessionStates lists every state in lifecycle order.
func AllSessionStates() []SessionState {
	return []SessionState{StateIdle, StateRequestPending, StateGuiding, StateCanceled, StateFinished}
}
