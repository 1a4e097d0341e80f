// Command voce listens for a spoken wake word and types the dictation that
// follows into the focused window.
//
// Run without a command it starts the listener; the remaining commands
// (status, activate, deactivate, stop) talk to that listener over its
// control socket.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/voce/internal/app"
)

// shutdownSignals cancel the run context so the listener drains and exits 0.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	os.Exit(app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
