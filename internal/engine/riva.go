package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/riva"
	"github.com/rbright/voce/internal/transcript"
)

const (
	rivaRedialMin = 250 * time.Millisecond
	rivaRedialMax = 5 * time.Second
)

var errStreamEnded = errors.New("riva stream ended")

// RecognizeStream is the slice of riva.Stream the engine drives.
type RecognizeStream interface {
	SendAudio(chunk []byte) error
	Results() <-chan riva.Result
	Err() error
	Cancel() error
}

// Dialer opens one recognition stream.
type Dialer func(ctx context.Context) (RecognizeStream, error)

// DialRiva returns a Dialer for the configured Riva endpoint.
func DialRiva(cfg riva.StreamConfig) Dialer {
	return func(ctx context.Context) (RecognizeStream, error) {
		return riva.DialStream(ctx, cfg)
	}
}

// RivaOptions holds resources owned alongside the Riva engine.
type RivaOptions struct {
	OnClose func() error
}

// Riva forwards captured audio to a streaming recognizer. Each final result
// becomes one transcript; streams are redialed when the server ends them.
type Riva struct {
	source audio.Source
	dial   Dialer
	opts   RivaOptions
	hooks  Hooks
	logger *slog.Logger

	queue    *queue
	cancel   context.CancelFunc
	stopped  chan struct{}
	speaking bool

	closeOnce sync.Once
	closeErr  error
}

// NewRiva starts streaming source immediately.
func NewRiva(source audio.Source, dial Dialer, opts RivaOptions, hooks Hooks, logger *slog.Logger) *Riva {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Riva{
		source:  source,
		dial:    dial,
		opts:    opts,
		hooks:   hooks,
		logger:  logger,
		queue:   newQueue(),
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go r.run(ctx)
	return r
}

// Next blocks until a final result arrives, a stream fails, or the engine stops.
func (r *Riva) Next(ctx context.Context) (string, error) {
	return r.queue.next(ctx)
}

// Close stops capture and the active stream. It is idempotent.
func (r *Riva) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		stopErr := r.source.Stop()
		<-r.stopped

		var closeErr error
		if r.opts.OnClose != nil {
			closeErr = r.opts.OnClose()
		}
		r.closeErr = errors.Join(stopErr, closeErr)
	})
	return r.closeErr
}

func (r *Riva) run(ctx context.Context) {
	defer close(r.stopped)

	delay := rivaRedialMin
	for ctx.Err() == nil {
		stream, err := r.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			r.queue.report(fmt.Errorf("open riva stream: %w", err))
			if !sleepContext(ctx, delay) {
				break
			}
			delay = min(delay*2, rivaRedialMax)
			continue
		}
		delay = rivaRedialMin
		r.logger.Debug("riva stream opened")

		err = r.pump(ctx, stream)
		_ = stream.Cancel()
		r.endUtterance()

		switch {
		case ctx.Err() != nil:
		case errors.Is(err, errCaptureEnded):
			r.queue.finish(err)
			return
		case errors.Is(err, errStreamEnded):
			r.logger.Debug("riva stream ended by server; redialing")
			sleepContext(ctx, rivaRedialMin)
		case err != nil:
			r.queue.report(err)
		}
	}
	r.queue.finish(nil)
}

func (r *Riva) pump(ctx context.Context, stream RecognizeStream) error {
	chunks := r.source.Chunks()
	results := stream.Results()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return errCaptureEnded
			}
			if err := stream.SendAudio(chunk); err != nil {
				return fmt.Errorf("send audio to riva: %w", err)
			}
		case result, ok := <-results:
			if !ok {
				if err := stream.Err(); err != nil {
					return fmt.Errorf("riva stream: %w", err)
				}
				return errStreamEnded
			}
			if !r.handleResult(ctx, result) {
				return ctx.Err()
			}
		}
	}
}

func (r *Riva) handleResult(ctx context.Context, result riva.Result) bool {
	if !r.speaking {
		r.speaking = true
		r.hooks.recordingStarted()
	}
	if !result.Final {
		return true
	}

	r.endUtterance()
	text := transcript.Assemble([]string{result.Transcript})
	if text == "" {
		return true
	}
	return r.queue.push(ctx, text)
}

func (r *Riva) endUtterance() {
	if !r.speaking {
		return
	}
	r.speaking = false
	r.hooks.recordingStopped()
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
