package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voce/internal/command"
)

type recordingInjector struct {
	calls   []string
	typeErr error
	keyErr  error
	ctxErrs []error
}

func (r *recordingInjector) TypeText(ctx context.Context, text string) error {
	r.calls = append(r.calls, "type:"+text)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.typeErr
}

func (r *recordingInjector) PressKey(ctx context.Context, key Key) error {
	r.calls = append(r.calls, "key:"+string(key))
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.keyErr
}

func TestDispatcherDispatchesEachActionKind(t *testing.T) {
	tests := []struct {
		name   string
		action command.Action
		want   []string
	}{
		{name: "ignore", action: command.Ignore(), want: nil},
		{name: "activate", action: command.Activate(), want: nil},
		{name: "type text", action: command.TypeText("hello world"), want: []string{"type:hello world "}},
		{name: "press enter", action: command.PressEnter(), want: []string{"key:enter"}},
		{name: "type then enter", action: command.TypeTextThenEnter("ls -la"), want: []string{"type:ls -la ", "key:enter"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			injector := &recordingInjector{}
			dispatcher := NewDispatcher(injector, nil, time.Second)

			require.NoError(t, dispatcher.Dispatch(context.Background(), tc.action))
			require.Equal(t, tc.want, injector.calls)
		})
	}
}

func TestDispatcherTypeFailureSkipsEnter(t *testing.T) {
	injector := &recordingInjector{typeErr: injectionError("type text", errors.New("boom"))}
	dispatcher := NewDispatcher(injector, nil, 0)

	err := dispatcher.Dispatch(context.Background(), command.TypeTextThenEnter("hello"))
	require.ErrorIs(t, err, ErrInjection)
	require.Equal(t, []string{"type:hello "}, injector.calls)
}

func TestDispatcherIgnoresCallerCancellation(t *testing.T) {
	injector := &recordingInjector{}
	dispatcher := NewDispatcher(injector, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, dispatcher.Dispatch(ctx, command.TypeTextThenEnter("hello")))
	require.Equal(t, []error{nil, nil}, injector.ctxErrs)
}

func TestDispatcherLogsFailedStepAtDebugOnly(t *testing.T) {
	tests := []struct {
		name     string
		injector *recordingInjector
		action   command.Action
		wantOp   string
	}{
		{
			name:     "type text",
			injector: &recordingInjector{typeErr: injectionError("type text", errors.New("boom"))},
			action:   command.TypeText("hello"),
			wantOp:   "type_text",
		},
		{
			name:     "press enter",
			injector: &recordingInjector{keyErr: injectionError("press key", errors.New("boom"))},
			action:   command.PressEnter(),
			wantOp:   "press_key",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			dispatcher := NewDispatcher(tc.injector, logger, time.Second)

			require.ErrorIs(t, dispatcher.Dispatch(context.Background(), tc.action), ErrInjection)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 1)

			var record map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
			require.Equal(t, "DEBUG", record["level"])
			require.Equal(t, tc.wantOp, record["op"])
		})
	}
}
