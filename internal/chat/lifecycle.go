package chat

import "fmt"

// LifecycleState is the implicit state of a message with respect to its
// auto-delete schedule.
type LifecycleState string

const (
	// StateArmed: an auto-delete timer is pending for the message.
	StateArmed LifecycleState = "ARMED"
	// StateAlive: the message exists with no pending timer (non-ephemeral,
	// or its timer was cancelled by an edit).
	StateAlive LifecycleState = "ALIVE"
	// StateDeleting: the timer fired; the message is visible but marked as
	// deletion-in-flight until the grace interval elapses.
	StateDeleting LifecycleState = "DELETING"
	// StateGone: the message was removed. Absorbing; nothing revives it.
	StateGone LifecycleState = "GONE"
)

// validTransitions defines the allowed lifecycle transitions.
var validTransitions = map[LifecycleState][]LifecycleState{
	StateArmed:    {StateAlive, StateDeleting, StateGone},
	StateAlive:    {StateGone},
	StateDeleting: {StateGone},
	StateGone:     {},
}

// canTransition reports whether moving from one state to another is allowed.
func canTransition(from, to LifecycleState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition validates and returns the target state.
func transition(from, to LifecycleState) (LifecycleState, error) {
	if !canTransition(from, to) {
		return from, fmt.Errorf("invalid lifecycle transition from %s to %s", from, to)
	}
	return to, nil
}
