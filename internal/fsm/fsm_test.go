package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventWake)
	require.NoError(t, err)
	require.Equal(t, StateActivated, next)

	next, err = Transition(next, EventConsume)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionExpireReturnsToIdle(t *testing.T) {
	next, err := Transition(StateActivated, EventExpire)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionResetFromAnyStateGoesIdle(t *testing.T) {
	for _, state := range []State{StateIdle, StateActivated, State("mystery")} {
		next, err := Transition(state, EventReset)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionStayKeepsState(t *testing.T) {
	for _, state := range []State{StateIdle, StateActivated} {
		next, err := Transition(state, EventStay)
		require.NoError(t, err)
		require.Equal(t, state, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle consume invalid", state: StateIdle, event: EventConsume, want: StateIdle, wantErr: true},
		{name: "idle expire invalid", state: StateIdle, event: EventExpire, want: StateIdle, wantErr: true},
		{name: "activated wake invalid", state: StateActivated, event: EventWake, want: StateActivated, wantErr: true},
		{name: "activated consume valid", state: StateActivated, event: EventConsume, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventWake)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)

	_, err = Transition(State("mystery"), EventStay)
	require.Error(t, err)
}
