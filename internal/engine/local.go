package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/transcript"
	"github.com/rbright/voce/internal/vad"
)

var errCaptureEnded = errors.New("audio capture ended")

// Recognizer decodes one utterance of s16le mono PCM into text segments.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []byte) ([]string, error)
}

// LocalOptions tunes endpointing and debug output for Local.
type LocalOptions struct {
	VAD       vad.Config
	DumpAudio bool
	// OnClose releases resources owned alongside the engine, such as the model.
	OnClose func() error
}

// Local endpoints captured audio and runs inference in-process.
//
// One goroutine segments the PCM stream; a second runs inference so capture
// keeps draining while a long utterance is decoded.
type Local struct {
	source     audio.Source
	recognizer Recognizer
	opts       LocalOptions
	hooks      Hooks
	logger     *slog.Logger

	queue  *queue
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// NewLocal starts segmenting source immediately.
func NewLocal(source audio.Source, recognizer Recognizer, opts LocalOptions, hooks Hooks, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	l := &Local{
		source:     source,
		recognizer: recognizer,
		opts:       opts,
		hooks:      hooks,
		logger:     logger,
		queue:      newQueue(),
		cancel:     cancel,
		group:      group,
	}

	utterances := make(chan []byte, 4)
	group.Go(func() error {
		defer close(utterances)
		return l.segmentLoop(groupCtx, utterances)
	})
	group.Go(func() error {
		return l.inferLoop(groupCtx, utterances)
	})
	go func() {
		err := group.Wait()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		l.queue.finish(err)
	}()

	return l
}

// Next blocks until an utterance is transcribed, a recoverable inference
// error occurs, or the engine stops.
func (l *Local) Next(ctx context.Context) (string, error) {
	return l.queue.next(ctx)
}

// Close stops capture and inference. It is idempotent.
func (l *Local) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		stopErr := l.source.Stop()
		_ = l.group.Wait()
		<-l.queue.done

		var closeErr error
		if l.opts.OnClose != nil {
			closeErr = l.opts.OnClose()
		}
		l.closeErr = errors.Join(stopErr, closeErr)
	})
	return l.closeErr
}

func (l *Local) segmentLoop(ctx context.Context, utterances chan<- []byte) error {
	segmenter := vad.New(l.opts.VAD)
	chunks := l.source.Chunks()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				if result := segmenter.Flush(); result.Ended {
					l.endpoint(ctx, result, utterances)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errCaptureEnded
			}

			result := segmenter.Push(chunk)
			if result.SpeechStarted {
				l.logger.Debug("speech started")
				l.hooks.recordingStarted()
			}
			if result.Ended {
				l.endpoint(ctx, result, utterances)
			}
		}
	}
}

func (l *Local) endpoint(ctx context.Context, result vad.Result, utterances chan<- []byte) {
	l.hooks.recordingStopped()
	if result.Utterance == nil {
		l.logger.Debug("utterance below minimum speech length dropped")
		return
	}
	l.logger.Debug("utterance endpointed",
		"bytes", len(result.Utterance),
		"forced", result.Forced,
	)
	select {
	case utterances <- result.Utterance:
	case <-ctx.Done():
	}
}

func (l *Local) inferLoop(ctx context.Context, utterances <-chan []byte) error {
	for pcm := range utterances {
		if l.opts.DumpAudio {
			if path, err := dumpUtterance(pcm); err != nil {
				l.logger.Warn("unable to write debug audio dump", "error", err.Error())
			} else {
				l.logger.Debug("debug audio dump written", "path", path)
			}
		}

		started := time.Now()
		segments, err := l.recognizer.Transcribe(ctx, pcm)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.queue.report(fmt.Errorf("transcribe utterance: %w", err))
			continue
		}

		text := transcript.Assemble(segments)
		l.logger.Debug("utterance transcribed",
			"inference_ms", time.Since(started).Milliseconds(),
			"segments", len(segments),
			"empty", text == "",
		)
		if text == "" {
			continue
		}
		if !l.queue.push(ctx, text) {
			return ctx.Err()
		}
	}
	return nil
}
