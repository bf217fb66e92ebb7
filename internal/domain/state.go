package domain

import "fmt"

// TransferState represents the orchestrator's position in the transfer
// pipeline. The set is closed: Idle is the rest state, Success and
// Error are terminal, everything in between is transient and advanced
// by the orchestrator without external input.
type TransferState string

const (
	StateIdle         TransferState = "IDLE"
	StateValidating   TransferState = "VALIDATING"
	StateAuthorizing  TransferState = "AUTHORIZING"
	StateTransferring TransferState = "TRANSFERRING"
	StateCompleting   TransferState = "COMPLETING"
	StateSuccess      TransferState = "SUCCESS"
	StateError        TransferState = "ERROR"
)

// allowedTransitions defines the valid state transitions.
// The key is the current state, and the value is the set of valid
// target states. Any transient state may fail directly into Error.
var allowedTransitions = map[TransferState][]TransferState{
	StateIdle:         {StateValidating},
	StateValidating:   {StateAuthorizing, StateError},
	StateAuthorizing:  {StateTransferring, StateError},
	StateTransferring: {StateCompleting, StateError},
	StateCompleting:   {StateSuccess, StateError},
	StateSuccess:      {StateIdle},
	StateError:        {StateValidating, StateIdle}, // retry re-enters from the top
}

// IsTerminal reports whether no further automatic transition occurs
// from s without new user input.
func (s TransferState) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

// CanTransition checks if a transition from one state to another is allowed.
func CanTransition(from, to TransferState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error if the transition is not allowed.
func ValidateTransition(from, to TransferState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transfer state transition from %s to %s", from, to)
	}
	return nil
}
