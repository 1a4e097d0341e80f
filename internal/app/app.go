package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/cli"
	"github.com/rbright/voce/internal/command"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/doctor"
	"github.com/rbright/voce/internal/engine"
	"github.com/rbright/voce/internal/indicator"
	"github.com/rbright/voce/internal/ipc"
	"github.com/rbright/voce/internal/logging"
	"github.com/rbright/voce/internal/observe"
	"github.com/rbright/voce/internal/output"
	"github.com/rbright/voce/internal/session"
	"github.com/rbright/voce/internal/version"
)

// EngineOpener starts the speech engine for the listen loop.
type EngineOpener func(context.Context, config.Config, engine.Hooks, *slog.Logger) (engine.Engine, error)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// OpenEngine defaults to engine.Open.
	OpenEngine EngineOpener
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voce"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voce"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(logging.Options{
		Level:      cfgLoaded.Config.Logging.Level,
		MaxSizeMB:  cfgLoaded.Config.Logging.MaxSizeMB,
		MaxBackups: cfgLoaded.Config.Logging.MaxBackups,
		Compress:   cfgLoaded.Config.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	if speechPlan, _, err := config.BuildSpeechPhrases(cfgLoaded.Config); err == nil {
		logger.Debug("speech context plan", "phrase_count", len(speechPlan), "phrases", speechPlan)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"version", version.Version,
	)

	switch parsed.Command {
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config.Audio.Backend)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandActivate, cli.CommandDeactivate, cli.CommandStop:
		return r.forwardOrFail(ctx, string(parsed.Command))
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandListen owns the control socket and runs the transcript loop until
// interrupt, a stop request, or a fatal engine failure.
func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(logger, "resolve control socket", err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		return r.fail(logger, "acquire control socket", err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	parser, err := command.NewParser(command.Options{
		WakeWord:    cfg.WakeWord,
		StrictEnter: cfg.Parser.StrictEnter,
	})
	if err != nil {
		return r.fail(logger, "build command parser", err)
	}

	injector, err := output.NewInjector(cfg.Inject, logger)
	if err != nil {
		return r.fail(logger, "build input injector", err)
	}
	dispatcher := output.NewDispatcher(injector, logger, millis(cfg.Inject.TimeoutMS))

	notifier := indicator.NewNotifier(cfg.Indicator, logger, r.Stdout)
	defer notifier.Wait()

	var provider *observe.Provider
	metrics := observe.Discard()
	if addr := strings.TrimSpace(cfg.Metrics.Listen); addr != "" {
		provider, err = observe.NewProvider(version.Version)
		if err != nil {
			return r.fail(logger, "build metrics provider", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics shutdown failed", "error", err.Error())
			}
		}()
		metrics = provider.Metrics
	}

	openEngine := r.OpenEngine
	if openEngine == nil {
		openEngine = engine.Open
	}
	hooks := engine.Hooks{
		OnRecordingStart: func() {
			logger.Debug("recording started")
			notifier.RecordingStarted(ctx)
		},
		OnRecordingStop: func() {
			logger.Debug("recording stopped")
			notifier.RecordingStopped(ctx)
		},
	}
	speech, err := openEngine(ctx, cfg, hooks, logger)
	if err != nil {
		return r.fail(logger, "start speech engine", err)
	}

	controller := session.NewController(logger, speech, parser, dispatcher, notifier, session.Options{
		ActivationTimeout: millis(cfg.Activation.TimeoutMS),
		Metrics:           metrics,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, stopAll := context.WithCancel(groupCtx)
	defer stopAll()

	group.Go(func() error {
		defer stopAll()
		return controller.Run(runCtx)
	})
	group.Go(func() error {
		if err := ipc.Serve(runCtx, listener, controller); err != nil {
			return fmt.Errorf("ipc server: %w", err)
		}
		return nil
	})
	if provider != nil {
		group.Go(func() error {
			return observe.Serve(runCtx, cfg.Metrics.Listen, provider.Handler(), logger)
		})
	}

	if err := group.Wait(); err != nil {
		return r.fail(logger, "listener stopped", err)
	}
	logger.Info("listener stopped")
	return 0
}

func (r Runner) commandDevices(ctx context.Context, backend string) int {
	devices, err := audio.ListDevices(ctx, backend)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running voce listener\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// fail reports a fatal listen error on stderr and at critical level.
func (r Runner) fail(logger *slog.Logger, op string, err error) int {
	fmt.Fprintf(r.Stderr, "error: %s: %v\n", op, err)
	logger.Log(context.Background(), logging.LevelCritical, op+" failed", "error", err.Error())
	return 1
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
