// Package fsm defines the dictation activation state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateActivated State = "activated"
)

const (
	// EventWake arms dictation for the next transcript.
	EventWake Event = "wake"
	// EventConsume ends an activation after one transcript.
	EventConsume Event = "consume"
	// EventExpire ends an activation that outlived its window.
	EventExpire Event = "expire"
	// EventStay leaves the current state untouched.
	EventStay  Event = "stay"
	EventReset Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	switch event {
	case EventReset:
		return StateIdle, nil
	case EventStay:
		if current != StateIdle && current != StateActivated {
			return current, fmt.Errorf("unknown state %q", current)
		}
		return current, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventWake:
			return StateActivated, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateActivated:
		switch event {
		case EventConsume, EventExpire:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
