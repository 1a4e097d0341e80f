// Package whisper runs local speech recognition through the whisper.cpp
// CGO bindings. The whisper.cpp static library (libwhisper.a) and header
// must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Config selects the model and decoding parameters.
type Config struct {
	ModelPath string
	Language  string
	BeamSize  int
	Threads   int
	// Prompt biases decoding toward expected vocabulary.
	Prompt string
}

// Recognizer owns one loaded model. Transcribe calls are serialized.
type Recognizer struct {
	cfg   Config
	model whisperlib.Model

	mu     sync.Mutex
	closed bool
}

// Load reads the model file once; callers must Close the recognizer.
func Load(cfg Config) (*Recognizer, error) {
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	model, err := whisperlib.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", cfg.ModelPath, err)
	}
	return &Recognizer{cfg: cfg, model: model}, nil
}

// Transcribe decodes one utterance of s16le mono 16kHz PCM into text segments.
//
// Cancelling ctx aborts decoding before the encoder starts.
func (r *Recognizer) Transcribe(ctx context.Context, pcm []byte) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("whisper: recognizer is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(r.cfg.Language); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", r.cfg.Language, err)
	}
	if r.cfg.BeamSize > 0 {
		wctx.SetBeamSize(r.cfg.BeamSize)
	}
	if r.cfg.Threads > 0 {
		wctx.SetThreads(uint(r.cfg.Threads))
	}
	if r.cfg.Prompt != "" {
		wctx.SetInitialPrompt(r.cfg.Prompt)
	}

	proceed := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(pcmToFloat32(pcm), proceed, nil, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		segments = append(segments, segment.Text)
	}
	return segments, nil
}

// Close releases the model. It is safe to call more than once.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.model.Close()
}
