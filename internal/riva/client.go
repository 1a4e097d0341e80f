// Package riva streams microphone audio to a Riva StreamingRecognize endpoint
// and reports interim and final recognition results.
package riva

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"
)

const sampleRateHertz = 16000

// SpeechPhrase is one vocabulary boost phrase in request-ready form.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

// StreamConfig controls stream initialization and recognition behavior.
type StreamConfig struct {
	Endpoint              string
	LanguageCode          string
	Model                 string
	AutomaticPunctuation  bool
	SpeechPhrases         []SpeechPhrase
	DialTimeout           time.Duration
	DebugResponseSinkJSON io.Writer
}

// Result is one recognition update. Final results are complete utterances.
type Result struct {
	Transcript string
	Final      bool
}

// Stream wraps one long-lived StreamingRecognize RPC.
type Stream struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc

	results  chan Result
	done     chan struct{}
	recvDone chan struct{}

	sendMu sync.Mutex

	mu            sync.Mutex
	lastInterim   string
	recvErr       error
	closedSend    bool
	cancelled     bool
	debugSinkJSON io.Writer
}

// DialStream establishes a stream, sends config, and starts the receive loop.
// The stream lives until Close, Cancel, or ctx cancellation.
func DialStream(ctx context.Context, cfg StreamConfig) (*Stream, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("riva endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = "en-US"
	}
	cfg.Model = strings.TrimSpace(cfg.Model)

	conn, err := dialConn(ctx, endpoint, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	desc := &grpc.StreamDesc{
		StreamName:    "StreamingRecognize",
		ServerStreams: true,
		ClientStreams: true,
	}
	stream, err := withTimeout(streamCtx, cfg.DialTimeout, func() (grpc.ClientStream, error) {
		return conn.NewStream(streamCtx, desc, streamingRecognizeMethod)
	})
	if err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("open streaming recognizer: %w", err)
	}

	if _, err := withTimeout(streamCtx, cfg.DialTimeout, func() (struct{}, error) {
		return struct{}{}, stream.SendMsg(newConfigRequest(cfg))
	}); err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("send initial streaming config: %w", err)
	}

	s := &Stream{
		conn:          conn,
		stream:        stream,
		cancel:        cancel,
		results:       make(chan Result, 16),
		done:          make(chan struct{}),
		recvDone:      make(chan struct{}),
		debugSinkJSON: cfg.DebugResponseSinkJSON,
	}
	go s.recvLoop()
	return s, nil
}

// Results delivers recognition updates in arrival order. The channel closes
// when the server ends the stream or the connection fails; Err then reports
// the failure, if any.
func (s *Stream) Results() <-chan Result {
	return s.results
}

// Err returns the receive-loop failure after Results has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recvErr
}

// recvLoop continuously receives recognition responses until stream close/error.
func (s *Stream) recvLoop() {
	defer close(s.recvDone)
	defer close(s.results)

	for {
		resp := dynamicpb.NewMessage(schema.response)
		err := s.stream.RecvMsg(resp)
		if err == nil {
			for _, result := range s.recordResponse(resp) {
				if !s.deliver(result) {
					return
				}
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			if trailing := s.takeInterim(); trailing != "" {
				s.deliver(Result{Transcript: trailing, Final: true})
			}
			return
		}

		s.mu.Lock()
		if !s.cancelled {
			s.recvErr = err
		}
		s.mu.Unlock()
		return
	}
}

func (s *Stream) deliver(result Result) bool {
	select {
	case s.results <- result:
		return true
	case <-s.done:
		return false
	}
}

// recordResponse turns one response into ordered updates and tracks the
// latest interim so a stream ending mid-utterance still yields it.
func (s *Stream) recordResponse(resp *dynamicpb.Message) []Result {
	if sink := s.debugSinkJSON; sink != nil {
		b, err := protojson.Marshal(resp)
		if err == nil {
			_, _ = sink.Write(append(b, '\n'))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Result
	for _, result := range decodeResults(resp) {
		transcript := cleanSegment(result.transcript)
		if transcript == "" {
			continue
		}
		if result.final {
			s.lastInterim = ""
			out = append(out, Result{Transcript: transcript, Final: true})
			continue
		}
		if transcript == s.lastInterim {
			continue
		}
		s.lastInterim = transcript
		out = append(out, Result{Transcript: transcript})
	}
	return out
}

func (s *Stream) takeInterim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	interim := s.lastInterim
	s.lastInterim = ""
	return interim
}

// SendAudio sends one chunk of PCM audio over the active stream.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	recvErr := s.recvErr
	s.mu.Unlock()

	if closed {
		return errors.New("stream already closed for sending")
	}
	if recvErr != nil {
		return fmt.Errorf("stream receive loop failed: %w", recvErr)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.stream.SendMsg(newAudioRequest(chunk))
}

// Close half-closes the stream and waits for the server to flush its
// remaining results, then releases the connection. Callers keep reading
// Results until it closes; ctx bounds the wait.
func (s *Stream) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		s.sendMu.Lock()
		_ = s.stream.CloseSend()
		s.sendMu.Unlock()
	}
	s.mu.Unlock()

	select {
	case <-s.recvDone:
	case <-ctx.Done():
		_ = s.Cancel()
		return ctx.Err()
	}
	_ = s.Cancel()
	return s.Err()
}

// Cancel aborts stream processing and closes the underlying grpc connection.
// It is safe to call more than once.
func (s *Stream) Cancel() error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return nil
	}
	s.cancelled = true
	s.closedSend = true
	close(s.done)
	s.mu.Unlock()

	s.cancel()
	return s.conn.Close()
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}
