// Package indicator handles console feedback, visual state notifications, and audio cues.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voce/internal/command"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/hypr"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	Listening(ctx context.Context, wakeWord string)
	RecordingStarted(ctx context.Context)
	RecordingStopped(ctx context.Context)
	Processing(ctx context.Context, transcript string)
	Activated(ctx context.Context)
	Deactivated(ctx context.Context, expired bool)
	Dispatched(ctx context.Context, action command.Action)
	ShowError(ctx context.Context, text string)
	ShuttingDown(ctx context.Context)
}

// Notifier is the concrete indicator implementation used by the listen loop.
// Console lines go to the configured writer; notifications route via
// Hyprland or desktop DBus based on the configured backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	console  *console

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
	pending               sync.WaitGroup
	cue                   func(context.Context, cueKind, config.IndicatorConfig) error
}

// NewNotifier creates an indicator controller from config.
// out receives console feedback lines; nil disables them.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger, out io.Writer) *Notifier {
	var c *console
	if cfg.Console && out != nil {
		c = &console{out: out}
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFromEnv(),
		console:  c,
		cue:      emitCue,
	}
}

// Listening announces that the loop waits for the wake word.
func (n *Notifier) Listening(_ context.Context, wakeWord string) {
	n.console.printf(n.messages.listening, wakeWord)
}

// RecordingStarted reports that the engine detected speech.
func (n *Notifier) RecordingStarted(context.Context) {
	n.console.println(n.messages.recording)
}

// RecordingStopped reports that the engine reached the end of an utterance.
func (n *Notifier) RecordingStopped(context.Context) {
	n.console.println(n.messages.stopped)
}

// Processing echoes a finalized transcript.
func (n *Notifier) Processing(_ context.Context, transcript string) {
	n.console.printf(n.messages.processing, transcript)
}

// Activated signals that the next utterance will be dictated.
func (n *Notifier) Activated(ctx context.Context) {
	n.console.println(n.messages.activated)
	n.playCue(cueActivate)
	if !n.notifying() {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.Notification{
			Icon:    hypr.IconInfo,
			Timeout: 5 * time.Minute,
			Color:   hypr.DefaultColor,
			Text:    n.messages.activatedBanner,
		})
	})
}

// Deactivated clears the activation notification; expired marks a lapsed window.
func (n *Notifier) Deactivated(ctx context.Context, expired bool) {
	if expired {
		n.console.println(n.messages.expired)
		n.playCue(cueExpire)
	}
	if !n.notifying() {
		return
	}
	n.run(ctx, n.dismiss)
}

// Dispatched reports an injected action.
func (n *Notifier) Dispatched(_ context.Context, action command.Action) {
	switch action.Kind {
	case command.KindTypeText:
		n.console.printf(n.messages.typed, action.Text)
	case command.KindPressEnter:
		n.console.println(n.messages.pressedEnter)
	case command.KindTypeTextThenEnter:
		n.console.printf(n.messages.typedWithEnter, action.Text)
	default:
		return
	}
	n.playCue(cueComplete)
}

// ShowError displays an error-state indicator message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.messages.errorText
	}
	n.console.printf(n.messages.errorLine, text)
	n.playCue(cueError)
	if !n.notifying() {
		return
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, hypr.Notification{
			Icon:    hypr.IconError,
			Timeout: time.Duration(timeout) * time.Millisecond,
			Color:   "rgb(f38ba8)",
			Text:    text,
		})
	})
}

// ShuttingDown prints the farewell line and clears notifications.
func (n *Notifier) ShuttingDown(ctx context.Context) {
	n.console.println(n.messages.shutdown)
	if !n.notifying() {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues finish playing.
func (n *Notifier) Wait() {
	n.pending.Wait()
}

func (n *Notifier) notifying() bool {
	return n.cfg.Enable && n.backend() != "console"
}

func (n *Notifier) backend() string {
	return strings.ToLower(strings.TrimSpace(n.cfg.Backend))
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, note hypr.Notification) error {
	if n.backend() == "desktop" {
		level := urgencyNormal
		if note.Icon == hypr.IconError {
			level = urgencyCritical
		}
		return n.notifyDesktop(ctx, level, int(note.Timeout.Milliseconds()), note.Text)
	}
	return hypr.Notify(ctx, note)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.backend() == "desktop" {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, level urgency, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "voce-indicator"
	}

	id, err := desktopNotify(ctx, desktopNotification{
		appName:   appName,
		replaceID: replaceID,
		summary:   text,
		urgency:   level,
		timeoutMS: timeoutMS,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := n.cue(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
