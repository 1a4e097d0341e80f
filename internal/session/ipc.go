package session

import (
	"context"
	"fmt"

	"github.com/rbright/voce/internal/fsm"
	"github.com/rbright/voce/internal/ipc"
)

// Handle serves IPC commands for the running listener.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandActivate:
		return c.request(requestActivate, ipc.CommandActivate, fsm.StateIdle)
	case ipc.CommandDeactivate:
		return c.request(requestDeactivate, ipc.CommandDeactivate, fsm.StateActivated)
	case ipc.CommandStop:
		return c.enqueue(requestStop, ipc.CommandStop)
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// request enqueues kind when the current state permits it.
func (c *Controller) request(kind requestKind, name string, from fsm.State) ipc.Response {
	state := c.State()
	if state != from {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", name, state)}
	}
	return c.enqueue(kind, name)
}

func (c *Controller) enqueue(kind requestKind, name string) ipc.Response {
	state := c.State()
	select {
	case c.requests <- kind:
		return ipc.Response{OK: true, State: string(state), Message: name + " requested"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: "request queue full"}
	}
}
