package riva

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestSchemaFieldNumbersMatchRivaWire(t *testing.T) {
	require.EqualValues(t, 1, fieldOf(schema.request, "streaming_config").Number())
	require.EqualValues(t, 2, fieldOf(schema.request, "audio_content").Number())
	require.EqualValues(t, 11, fieldOf(schema.recognition, "enable_automatic_punctuation").Number())
	require.EqualValues(t, 13, fieldOf(schema.recognition, "model").Number())
	require.EqualValues(t, 4, fieldOf(schema.speechContext, "boost").Number())
	require.EqualValues(t, 2, fieldOf(schema.result, "is_final").Number())
	require.NotNil(t, fieldOf(schema.request, "audio_content").ContainingOneof())
}

func TestNewConfigRequestSkipsBlankPhrases(t *testing.T) {
	req := newConfigRequest(StreamConfig{
		LanguageCode:         "en-US",
		Model:                "parakeet",
		AutomaticPunctuation: true,
		SpeechPhrases: []SpeechPhrase{
			{Phrase: "  hyprland  ", Boost: 12},
			{Phrase: " ", Boost: 20},
		},
	})

	got := decodeConfig(req)
	require.Equal(t, int32(16000), got.sampleRate)
	require.Equal(t, int32(1), got.channels)
	require.Equal(t, "en-US", got.language)
	require.Equal(t, "parakeet", got.model)
	require.True(t, got.punctuation)
	require.True(t, got.interim)
	require.Equal(t, []string{"hyprland"}, got.phrases)
	require.Equal(t, []float32{12}, got.boosts)
}

func TestRecordResponseEmitsInterimOnceThenFinal(t *testing.T) {
	s := &Stream{}

	got := s.recordResponse(testResponse(testResult{text: "hello wor"}))
	require.Equal(t, []Result{{Transcript: "hello wor"}}, got)

	got = s.recordResponse(testResponse(testResult{text: " hello  wor "}))
	require.Empty(t, got)

	got = s.recordResponse(testResponse(testResult{text: "hello world", final: true}))
	require.Equal(t, []Result{{Transcript: "hello world", Final: true}}, got)
	require.Empty(t, s.lastInterim)
}

func TestRecordResponseSkipsEmptyAlternatives(t *testing.T) {
	s := &Stream{}
	resp := dynamicpb.NewMessage(schema.response)
	results := resp.Mutable(fieldOf(schema.response, "results")).List()
	results.Append(results.NewElement())

	require.Empty(t, s.recordResponse(resp))
	require.Empty(t, s.recordResponse(testResponse(testResult{text: "   ", final: true})))
}

func TestCleanSegment(t *testing.T) {
	require.Equal(t, "hello world", cleanSegment("  hello\n world  "))
	require.Empty(t, cleanSegment("   \n\t"))
}

func TestDialStreamEndToEnd(t *testing.T) {
	server := &testRivaServer{
		responses: []*dynamicpb.Message{
			testResponse(testResult{text: "copy"}),
			testResponse(testResult{text: "copy", final: true}),
			testResponse(testResult{text: "hello there"}),
		},
	}
	endpoint := startTestRivaServer(t, server)

	var debug bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{
		Endpoint:              endpoint,
		Model:                 "parakeet",
		AutomaticPunctuation:  true,
		SpeechPhrases:         []SpeechPhrase{{Phrase: "voce", Boost: 10}},
		DialTimeout:           2 * time.Second,
		DebugResponseSinkJSON: &debug,
	})
	require.NoError(t, err)

	require.NoError(t, stream.SendAudio([]byte{1, 2, 3, 4}))
	require.NoError(t, stream.SendAudio(nil))

	collected := make(chan []Result, 1)
	go func() {
		var all []Result
		for result := range stream.Results() {
			all = append(all, result)
		}
		collected <- all
	}()

	require.NoError(t, stream.Close(ctx))
	require.Equal(t, []Result{
		{Transcript: "copy"},
		{Transcript: "copy", Final: true},
		{Transcript: "hello there"},
		{Transcript: "hello there", Final: true},
	}, <-collected)

	cfg := server.config()
	require.Equal(t, "en-US", cfg.language)
	require.Equal(t, "parakeet", cfg.model)
	require.Equal(t, []string{"voce"}, cfg.phrases)
	require.Equal(t, 1, server.chunks())
	require.Contains(t, debug.String(), "results")

	err = stream.SendAudio([]byte{9})
	require.Error(t, err)
	require.Contains(t, err.Error(), "closed")
	require.NoError(t, stream.Cancel())
}

func TestDialStreamEmptyEndpoint(t *testing.T) {
	_, err := DialStream(context.Background(), StreamConfig{Endpoint: "   "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint is empty")
}

func TestDialStreamReadinessTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := DialStream(ctx, StreamConfig{
		Endpoint:    "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "readiness")
}

func TestStreamReportsServerError(t *testing.T) {
	server := &testRivaServer{streamErr: status.Error(codes.Internal, "boom")}
	endpoint := startTestRivaServer(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{Endpoint: endpoint, DialTimeout: time.Second})
	require.NoError(t, err)

	err = stream.Close(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestCancelStopsStreamWithoutError(t *testing.T) {
	server := &testRivaServer{holdOpen: true}
	endpoint := startTestRivaServer(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, StreamConfig{Endpoint: endpoint, DialTimeout: time.Second})
	require.NoError(t, err)

	require.NoError(t, stream.Cancel())
	require.NoError(t, stream.Cancel())
	for range stream.Results() {
	}
	require.NoError(t, stream.Err())
}

func TestWithTimeoutTimesOut(t *testing.T) {
	_, err := withTimeout(context.Background(), 20*time.Millisecond, func() (grpc.ClientStream, error) {
		time.Sleep(120 * time.Millisecond)
		return nil, nil
	})
	require.ErrorContains(t, err, "timed out")
}

func TestWithTimeoutReturnsCallResult(t *testing.T) {
	want := errors.New("boom")
	_, err := withTimeout(context.Background(), time.Second, func() (int, error) {
		return 0, want
	})
	require.ErrorIs(t, err, want)

	got, err := withTimeout(context.Background(), 0, func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
}

func TestWithTimeoutHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := withTimeout(ctx, time.Second, func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

type testResult struct {
	text  string
	final bool
}

func testResponse(results ...testResult) *dynamicpb.Message {
	resp := dynamicpb.NewMessage(schema.response)
	list := resp.Mutable(fieldOf(schema.response, "results")).List()
	for _, r := range results {
		element := list.NewElement()
		msg := element.Message()
		msg.Set(fieldOf(schema.result, "is_final"), protoreflect.ValueOfBool(r.final))
		alternatives := msg.Mutable(fieldOf(schema.result, "alternatives")).List()
		alt := alternatives.NewElement()
		alt.Message().Set(fieldOf(schema.alternative, "transcript"), protoreflect.ValueOfString(r.text))
		alternatives.Append(alt)
		list.Append(element)
	}
	return resp
}

type decodedConfig struct {
	sampleRate  int32
	channels    int32
	language    string
	model       string
	punctuation bool
	interim     bool
	phrases     []string
	boosts      []float32
}

func decodeConfig(req protoreflect.Message) decodedConfig {
	streaming := req.Get(fieldOf(schema.request, "streaming_config")).Message()
	recognition := streaming.Get(fieldOf(schema.streamingConfig, "config")).Message()

	out := decodedConfig{
		sampleRate:  int32(recognition.Get(fieldOf(schema.recognition, "sample_rate_hertz")).Int()),
		channels:    int32(recognition.Get(fieldOf(schema.recognition, "audio_channel_count")).Int()),
		language:    recognition.Get(fieldOf(schema.recognition, "language_code")).String(),
		model:       recognition.Get(fieldOf(schema.recognition, "model")).String(),
		punctuation: recognition.Get(fieldOf(schema.recognition, "enable_automatic_punctuation")).Bool(),
		interim:     streaming.Get(fieldOf(schema.streamingConfig, "interim_results")).Bool(),
	}
	contexts := recognition.Get(fieldOf(schema.recognition, "speech_contexts")).List()
	for i := range contexts.Len() {
		sc := contexts.Get(i).Message()
		phrases := sc.Get(fieldOf(schema.speechContext, "phrases")).List()
		for j := range phrases.Len() {
			out.phrases = append(out.phrases, phrases.Get(j).String())
		}
		out.boosts = append(out.boosts, float32(sc.Get(fieldOf(schema.speechContext, "boost")).Float()))
	}
	return out
}

type testRivaServer struct {
	responses []*dynamicpb.Message
	streamErr error
	holdOpen  bool

	mu          sync.Mutex
	received    decodedConfig
	audioChunks int
}

func (s *testRivaServer) config() decodedConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *testRivaServer) chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioChunks
}

func (s *testRivaServer) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	if method != streamingRecognizeMethod {
		return status.Errorf(codes.Unimplemented, "unexpected method %s", method)
	}
	if s.holdOpen {
		<-stream.Context().Done()
		return stream.Context().Err()
	}

	for {
		req := dynamicpb.NewMessage(schema.request)
		err := stream.RecvMsg(req)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		s.mu.Lock()
		if req.Has(fieldOf(schema.request, "streaming_config")) {
			s.received = decodeConfig(req)
		} else if len(req.Get(fieldOf(schema.request, "audio_content")).Bytes()) > 0 {
			s.audioChunks++
		}
		s.mu.Unlock()
	}

	for _, resp := range s.responses {
		if err := stream.SendMsg(resp); err != nil {
			return err
		}
	}
	return s.streamErr
}

func startTestRivaServer(t *testing.T, srv *testRivaServer) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer(grpc.UnknownServiceHandler(srv.handle))
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(func() {
		grpcServer.Stop()
		_ = lis.Close()
	})

	return lis.Addr().String()
}
