package output

import (
	"context"
	"log/slog"
	"time"

	"github.com/rbright/voce/internal/command"
)

// Dispatcher executes one parsed action against an Injector.
//
// Each dispatch runs under its own timeout on a context that ignores
// cancellation of the caller, so an interrupt never cuts an action in half.
type Dispatcher struct {
	injector Injector
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher constructs a dispatcher; timeout <= 0 disables the per-action deadline.
func NewDispatcher(injector Injector, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{injector: injector, logger: logger, timeout: timeout}
}

// Dispatch performs action and reports the first injection failure.
//
// TypeText injects the text plus one trailing space; TypeTextThenEnter
// performs the same typing and then presses Enter. Ignore and Activate
// inject nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, action command.Action) error {
	if !action.Injects() {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	switch action.Kind {
	case command.KindTypeText:
		return d.typeText(ctx, action.Text)
	case command.KindPressEnter:
		return d.pressEnter(ctx)
	case command.KindTypeTextThenEnter:
		if err := d.typeText(ctx, action.Text); err != nil {
			return err
		}
		return d.pressEnter(ctx)
	default:
		return nil
	}
}

func (d *Dispatcher) typeText(ctx context.Context, text string) error {
	if err := d.injector.TypeText(ctx, text+" "); err != nil {
		d.logFailure("type_text", text, err)
		return err
	}
	return nil
}

func (d *Dispatcher) pressEnter(ctx context.Context) error {
	if err := d.injector.PressKey(ctx, KeyEnter); err != nil {
		d.logFailure("press_key", string(KeyEnter), err)
		return err
	}
	return nil
}

// logFailure records which injector step failed. The caller owns the
// error-level report for the action as a whole.
func (d *Dispatcher) logFailure(op string, payload string, err error) {
	if d.logger == nil {
		return
	}
	d.logger.Debug("input injection step failed", "op", op, "payload", payload, "error", err.Error())
}
