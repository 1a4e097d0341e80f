package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voce/internal/fsm"
	"github.com/rbright/voce/internal/ipc"
)

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl := newController(t, newFakeEngine(), newFakeDispatcher(), &fakeIndicator{}, Options{})

	status := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleStateGuards(t *testing.T) {
	ctrl := newController(t, newFakeEngine(), newFakeDispatcher(), &fakeIndicator{}, Options{})

	deactivate := ctrl.Handle(context.Background(), ipc.Request{Command: "deactivate"})
	require.False(t, deactivate.OK)
	require.Contains(t, deactivate.Error, "cannot deactivate from state idle")

	ctrl.setState(fsm.StateActivated)
	activate := ctrl.Handle(context.Background(), ipc.Request{Command: "activate"})
	require.False(t, activate.OK)
	require.Contains(t, activate.Error, "cannot activate from state activated")
}

func TestHandleQueueFull(t *testing.T) {
	ctrl := newController(t, newFakeEngine(), newFakeDispatcher(), &fakeIndicator{}, Options{})
	for range cap(ctrl.requests) {
		require.True(t, ctrl.Handle(context.Background(), ipc.Request{Command: "stop"}).OK)
	}
	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "queue full")
}

func TestHandleManualActivationDrivesRunLoop(t *testing.T) {
	h := startHarness(t, Options{})

	resp := h.ctrl.Handle(context.Background(), ipc.Request{Command: "activate"})
	require.True(t, resp.OK)
	require.Equal(t, "activate requested", resp.Message)
	waitForState(t, h.ctrl, fsm.StateActivated)

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: "deactivate"})
	require.True(t, resp.OK)
	waitForState(t, h.ctrl, fsm.StateIdle)

	require.Contains(t, h.indicator.snapshot(), "activated")
	require.Contains(t, h.indicator.snapshot(), "deactivated")

	resp = h.ctrl.Handle(context.Background(), ipc.Request{Command: "stop"})
	require.True(t, resp.OK)
	require.NoError(t, h.wait(t))
	require.Equal(t, int32(1), h.engine.closes.Load())
	require.Empty(t, h.dispatcher.snapshot())
}
