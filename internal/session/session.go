// Package session runs the transcript loop: it pulls finalized utterances
// from the speech engine, classifies them against the activation state, and
// dispatches the resulting actions one at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/voce/internal/command"
	"github.com/rbright/voce/internal/fsm"
	"github.com/rbright/voce/internal/logging"
	"github.com/rbright/voce/internal/observe"
)

// ErrEngineClosed reports that the speech engine stopped for good.
var ErrEngineClosed = errors.New("speech engine closed")

const (
	defaultBackoffMin = 100 * time.Millisecond
	defaultBackoffMax = 5 * time.Second

	injectionErrorText = "Input injection error"
)

// Engine produces one finalized transcript per Next call.
type Engine interface {
	Next(ctx context.Context) (string, error)
	// Close is idempotent.
	Close() error
}

// Dispatcher performs one parsed action.
type Dispatcher interface {
	Dispatch(ctx context.Context, action command.Action) error
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	Listening(ctx context.Context, wakeWord string)
	Processing(ctx context.Context, transcript string)
	Activated(ctx context.Context)
	Deactivated(ctx context.Context, expired bool)
	Dispatched(ctx context.Context, action command.Action)
	ShowError(ctx context.Context, text string)
	ShuttingDown(ctx context.Context)
}

type noopIndicator struct{}

func (noopIndicator) Listening(context.Context, string)          {}
func (noopIndicator) Processing(context.Context, string)         {}
func (noopIndicator) Activated(context.Context)                  {}
func (noopIndicator) Deactivated(context.Context, bool)          {}
func (noopIndicator) Dispatched(context.Context, command.Action) {}
func (noopIndicator) ShowError(context.Context, string)          {}
func (noopIndicator) ShuttingDown(context.Context)               {}

// Options tunes the loop.
type Options struct {
	// ActivationTimeout bounds how long a wake word stays armed; 0 disables it.
	ActivationTimeout time.Duration
	// BackoffMin and BackoffMax bound the delay between failed engine reads.
	BackoffMin time.Duration
	BackoffMax time.Duration
	Metrics    *observe.Metrics
}

type requestKind int

const (
	requestActivate requestKind = iota + 1
	requestDeactivate
	requestStop
)

type nextResult struct {
	text string
	err  error
}

// Controller owns the activation state. Only the Run goroutine mutates it;
// IPC handlers read a snapshot and enqueue requests.
type Controller struct {
	logger     *slog.Logger
	engine     Engine
	parser     *command.Parser
	dispatcher Dispatcher
	indicator  Indicator
	metrics    *observe.Metrics
	opts       Options
	now        func() time.Time

	mu    sync.RWMutex
	state fsm.State

	activatedAt time.Time
	expiry      *time.Timer
	expiryC     <-chan time.Time

	requests  chan requestKind
	closeOnce sync.Once
}

// NewController wires the loop collaborators. A nil indicator or metrics
// falls back to a no-op.
func NewController(
	logger *slog.Logger,
	engine Engine,
	parser *command.Parser,
	dispatcher Dispatcher,
	indicator Indicator,
	opts Options,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.Discard()
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = defaultBackoffMin
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = max(defaultBackoffMax, opts.BackoffMin)
	}

	return &Controller{
		logger:     logger,
		engine:     engine,
		parser:     parser,
		dispatcher: dispatcher,
		indicator:  indicator,
		metrics:    opts.Metrics,
		opts:       opts,
		now:        time.Now,
		state:      fsm.StateIdle,
		requests:   make(chan requestKind, 4),
	}
}

// State returns the current activation state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(state fsm.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Run processes transcripts until ctx is cancelled, a stop request arrives,
// or the engine fails for good. The engine is closed exactly once on every
// exit path. A nil error means a requested shutdown.
func (c *Controller) Run(ctx context.Context) (err error) {
	readCtx, cancelRead := context.WithCancel(ctx)
	var reader sync.WaitGroup
	defer func() {
		cancelRead()
		reader.Wait()
		c.disarmExpiry()
		c.closeEngine()
	}()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Log(context.WithoutCancel(ctx), logging.LevelCritical, "transcript loop panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("transcript loop panic: %v", r)
		}
	}()

	results := make(chan nextResult)
	reader.Add(1)
	go func() {
		defer reader.Done()
		c.readLoop(readCtx, results)
	}()

	c.logger.Info("listening for wake word", "wake_word", c.parser.WakeWord())
	c.indicator.Listening(ctx, c.parser.WakeWord())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("interrupt received; shutting down")
			c.indicator.ShuttingDown(context.WithoutCancel(ctx))
			return nil

		case req := <-c.requests:
			if c.handleRequest(ctx, req) {
				c.logger.Info("stop requested; shutting down")
				c.indicator.ShuttingDown(context.WithoutCancel(ctx))
				return nil
			}

		case <-c.expiryC:
			c.expiryC = nil
			if c.State() == fsm.StateActivated {
				c.apply(ctx, c.logger, fsm.EventExpire, observe.OutcomeExpired)
			}

		case res := <-results:
			if res.err == nil {
				c.process(ctx, res.text)
				continue
			}
			if ctx.Err() != nil {
				c.logger.Info("interrupt received; shutting down")
				c.indicator.ShuttingDown(context.WithoutCancel(ctx))
				return nil
			}
			if errors.Is(res.err, ErrEngineClosed) {
				c.logger.Log(ctx, logging.LevelCritical, "speech engine stopped", "error", res.err.Error())
				return fmt.Errorf("transcript loop: %w", res.err)
			}
			c.metrics.RecordEngineError(ctx)
			c.logger.Error("transcript loop failed", "error", res.err.Error())
		}
	}
}

// readLoop pulls transcripts and backs off exponentially across consecutive
// failures. It exits after ErrEngineClosed or when ctx ends.
func (c *Controller) readLoop(ctx context.Context, results chan<- nextResult) {
	failures := 0
	for {
		text, err := c.next(ctx)
		select {
		case results <- nextResult{text: text, err: err}:
		case <-ctx.Done():
			return
		}
		if err == nil {
			failures = 0
			continue
		}
		if errors.Is(err, ErrEngineClosed) || ctx.Err() != nil {
			return
		}

		failures++
		if !sleepContext(ctx, backoffDelay(failures, c.opts.BackoffMin, c.opts.BackoffMax)) {
			return
		}
	}
}

// next converts an engine panic into a terminal error.
func (c *Controller) next(ctx context.Context) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Log(context.WithoutCancel(ctx), logging.LevelCritical, "speech engine panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: engine panic: %v", ErrEngineClosed, r)
		}
	}()
	return c.engine.Next(ctx)
}

// process classifies and dispatches one transcript. Dispatch is never cut
// short by ctx; the dispatcher detaches from it.
func (c *Controller) process(ctx context.Context, text string) {
	logger := c.logger.With("transcript_id", uuid.NewString())
	c.metrics.RecordTranscript(ctx)

	state := c.State()
	logger.Info("transcript received", "transcript", text, "state", string(state))
	c.indicator.Processing(ctx, text)

	if state == fsm.StateActivated && c.activationExpired() {
		logger.Info("activation window elapsed before transcript")
		c.apply(ctx, logger, fsm.EventExpire, observe.OutcomeExpired)
		state = c.State()
	}

	decision := c.parser.Parse(text, state)
	logger.Info("transcript classified",
		"action", decision.Action.Kind.String(),
		"event", string(decision.Event),
	)

	if decision.Action.Injects() {
		started := c.now()
		err := c.dispatcher.Dispatch(ctx, decision.Action)
		c.metrics.RecordDispatch(ctx, decision.Action.Kind.String(), c.now().Sub(started), err)
		if err != nil {
			logger.Error("action failed", "action", decision.Action.Kind.String(), "error", err.Error())
			c.indicator.ShowError(context.WithoutCancel(ctx), injectionErrorText)
		} else {
			logger.Info("action dispatched", "action", decision.Action.Kind.String(), "text", decision.Action.Text)
			c.indicator.Dispatched(ctx, decision.Action)
		}
	}

	c.apply(ctx, logger, decision.Event, outcomeFor(decision.Event))
}

func (c *Controller) activationExpired() bool {
	if c.opts.ActivationTimeout <= 0 || c.activatedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.activatedAt) > c.opts.ActivationTimeout
}

// apply runs one state machine event and its side effects.
func (c *Controller) apply(ctx context.Context, logger *slog.Logger, event fsm.Event, outcome string) {
	prev := c.State()
	next, err := fsm.Transition(prev, event)
	if err != nil {
		logger.Error("state transition rejected", "state", string(prev), "event", string(event), "error", err.Error())
		return
	}
	if next == prev {
		return
	}
	c.setState(next)
	logger.Info("activation state changed", "from", string(prev), "to", string(next), "event", string(event))
	c.metrics.RecordActivation(ctx, outcome)

	switch next {
	case fsm.StateActivated:
		c.activatedAt = c.now()
		c.armExpiry()
		c.indicator.Activated(ctx)
	case fsm.StateIdle:
		c.activatedAt = time.Time{}
		c.disarmExpiry()
		c.indicator.Deactivated(context.WithoutCancel(ctx), event == fsm.EventExpire)
	}
}

func outcomeFor(event fsm.Event) string {
	switch event {
	case fsm.EventWake:
		return observe.OutcomeWake
	case fsm.EventConsume:
		return observe.OutcomeConsumed
	case fsm.EventExpire:
		return observe.OutcomeExpired
	default:
		return observe.OutcomeReset
	}
}

func (c *Controller) armExpiry() {
	c.disarmExpiry()
	if c.opts.ActivationTimeout <= 0 {
		return
	}
	c.expiry = time.NewTimer(c.opts.ActivationTimeout)
	c.expiryC = c.expiry.C
}

func (c *Controller) disarmExpiry() {
	if c.expiry != nil {
		c.expiry.Stop()
	}
	c.expiry = nil
	c.expiryC = nil
}

// handleRequest applies one queued IPC request and reports whether the loop should stop.
func (c *Controller) handleRequest(ctx context.Context, req requestKind) bool {
	switch req {
	case requestActivate:
		if c.State() == fsm.StateIdle {
			c.apply(ctx, c.logger, fsm.EventWake, observe.OutcomeManual)
		}
	case requestDeactivate:
		if c.State() == fsm.StateActivated {
			c.apply(ctx, c.logger, fsm.EventReset, observe.OutcomeReset)
		}
	case requestStop:
		return true
	}
	return false
}

func (c *Controller) closeEngine() {
	c.closeOnce.Do(func() {
		if c.engine == nil {
			return
		}
		if err := c.engine.Close(); err != nil {
			c.logger.Error("speech engine shutdown failed", "error", err.Error())
		}
	})
}

// backoffDelay doubles from lo for each consecutive failure, capped at hi.
func backoffDelay(failures int, lo time.Duration, hi time.Duration) time.Duration {
	delay := lo
	for i := 1; i < failures && delay < hi; i++ {
		delay *= 2
	}
	return min(delay, hi)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
