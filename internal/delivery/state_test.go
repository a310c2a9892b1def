package delivery

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStateMachineFollowsAllowedTransitions(t *testing.T) {
	var seen []ConnectionState
	sm := NewStateMachine(func(from, to ConnectionState) {
		seen = append(seen, to)
	})

	path := []ConnectionState{Connecting, Failed, Connecting, Ready, Failed, Connecting, Ready, Draining, Closed}
	for _, to := range path {
		if err := sm.Transition(to); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
	}

	if diff := cmp.Diff(path, seen); diff != "" {
		t.Fatalf("unexpected transitions (-want +got):\n%s", diff)
	}

	if sm.State() != Closed {
		t.Fatalf("expected closed, got %s", sm.State())
	}
}

func TestStateMachineRejectsIllegalTransitions(t *testing.T) {
	testCases := []struct {
		name string
		path []ConnectionState
		to   ConnectionState
	}{
		{"disconnected to ready", nil, Ready},
		{"disconnected to closed", nil, Closed},
		{"ready to connecting", []ConnectionState{Connecting, Ready}, Connecting},
		{"draining to ready", []ConnectionState{Draining}, Ready},
		{"closed to connecting", []ConnectionState{Draining, Closed}, Connecting},
		{"closed to draining", []ConnectionState{Draining, Closed}, Draining},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sm := NewStateMachine(nil)
			for _, s := range tc.path {
				if err := sm.Transition(s); err != nil {
					t.Fatalf("setup transition to %s failed: %v", s, err)
				}
			}

			before := sm.State()

			err := sm.Transition(tc.to)

			var illegal *IllegalTransitionError
			if !errors.As(err, &illegal) {
				t.Fatalf("expected IllegalTransitionError, got %v", err)
			}

			if illegal.From != before || illegal.To != tc.to {
				t.Fatalf("unexpected error contents: %v", illegal)
			}

			if sm.State() != before {
				t.Fatalf("state changed on rejected transition: %s", sm.State())
			}
		})
	}
}

func TestTransitionUnlessDrainingIsIgnoredOnceDraining(t *testing.T) {
	sm := NewStateMachine(nil)

	if err := sm.TransitionUnlessDraining(Connecting); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := sm.Transition(Draining); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, to := range []ConnectionState{Ready, Failed, Connecting} {
		if err := sm.TransitionUnlessDraining(to); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sm.State() != Draining {
			t.Fatalf("expected draining, got %s", sm.State())
		}
	}
}

func TestConnectionStateString(t *testing.T) {
	if Ready.String() != "ready" {
		t.Fatalf("unexpected name %q", Ready.String())
	}

	if ConnectionState(42).String() != "unknown(42)" {
		t.Fatalf("unexpected name %q", ConnectionState(42).String())
	}
}
