package delivery

import (
	"fmt"
	"sync"
)

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Ready
	Draining
	Failed
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Draining:
		return "draining"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var allowedTransitions = map[ConnectionState][]ConnectionState{
	Disconnected: {Connecting, Draining},
	Connecting:   {Ready, Failed, Draining},
	Ready:        {Failed, Draining},
	Failed:       {Connecting, Draining},
	Draining:     {Closed},
	Closed:       {},
}

type IllegalTransitionError struct {
	From ConnectionState
	To   ConnectionState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal connection state transition %s -> %s", e.From, e.To)
}

// StateMachine guards ConnectionState so it only moves along allowedTransitions.
type StateMachine struct {
	mu       sync.RWMutex
	current  ConnectionState
	onChange func(from, to ConnectionState)
}

func NewStateMachine(onChange func(from, to ConnectionState)) *StateMachine {
	return &StateMachine{current: Disconnected, onChange: onChange}
}

func (sm *StateMachine) State() ConnectionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

func (sm *StateMachine) Transition(to ConnectionState) error {
	return sm.transition(to, false)
}

// TransitionUnlessDraining applies a connection-level transition while the
// client is running.  Once draining has begun the worker may still reconnect to
// flush, but the externally visible state stays Draining.
func (sm *StateMachine) TransitionUnlessDraining(to ConnectionState) error {
	return sm.transition(to, true)
}

func (sm *StateMachine) transition(to ConnectionState, unlessDraining bool) error {
	sm.mu.Lock()
	from := sm.current
	if unlessDraining && (from == Draining || from == Closed) {
		sm.mu.Unlock()
		return nil
	}
	if !transitionAllowed(from, to) {
		sm.mu.Unlock()
		return &IllegalTransitionError{From: from, To: to}
	}
	sm.current = to
	sm.mu.Unlock()

	if sm.onChange != nil {
		sm.onChange(from, to)
	}

	return nil
}

func transitionAllowed(from, to ConnectionState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
