package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rbright/voce/internal/session"
)

// queue hands transcripts and recoverable errors from engine goroutines to
// Next. Once finished, Next drains buffered transcripts and then reports
// session.ErrEngineClosed.
type queue struct {
	transcripts chan string
	errs        chan error
	done        chan struct{}

	once  sync.Once
	mu    sync.Mutex
	cause error
}

func newQueue() *queue {
	return &queue{
		transcripts: make(chan string, 8),
		errs:        make(chan error, 1),
		done:        make(chan struct{}),
	}
}

// push blocks until the transcript is queued or ctx ends.
func (q *queue) push(ctx context.Context, text string) bool {
	select {
	case q.transcripts <- text:
		return true
	case <-ctx.Done():
		return false
	}
}

// report queues a recoverable error, dropping it when one is already pending.
func (q *queue) report(err error) {
	select {
	case q.errs <- err:
	default:
	}
}

// finish marks the engine stopped. cause is nil for a requested Close.
func (q *queue) finish(cause error) {
	q.once.Do(func() {
		q.mu.Lock()
		q.cause = cause
		q.mu.Unlock()
		close(q.done)
	})
}

func (q *queue) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-q.transcripts:
		return text, nil
	case err := <-q.errs:
		return "", err
	case <-q.done:
		select {
		case text := <-q.transcripts:
			return text, nil
		default:
		}
		return "", q.closedErr()
	}
}

func (q *queue) closedErr() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cause != nil {
		return fmt.Errorf("%w: %w", session.ErrEngineClosed, q.cause)
	}
	return session.ErrEngineClosed
}
