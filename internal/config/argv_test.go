package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "   ", want: nil},
		{name: "simple", input: "wtype -k Return", want: []string{"wtype", "-k", "Return"}},
		{name: "double quoted spaces", input: `ydotool type --delay "12 ms"`, want: []string{"ydotool", "type", "--delay", "12 ms"}},
		{name: "single quotes are literal", input: `sh -c 'printf "%s\n"'`, want: []string{"sh", "-c", `printf "%s\n"`}},
		{name: "escaped quote in double quotes", input: `echo "say \"hi\""`, want: []string{"echo", `say "hi"`}},
		{name: "other escapes kept in double quotes", input: `echo "a\tb"`, want: []string{"echo", `a\tb`}},
		{name: "escaped space", input: `wl-copy hello\ world`, want: []string{"wl-copy", "hello world"}},
		{name: "empty quoted argument", input: `notify "" body`, want: []string{"notify", "", "body"}},
		{name: "adjacent quoting joins", input: `a"b c"'d'`, want: []string{"ab cd"}},
		{name: "leading comment", input: `# wtype -k Return`, want: nil},
		{name: "unterminated double quote", input: `wtype "oops`, wantErr: `unterminated " quote`},
		{name: "unterminated single quote", input: `wtype 'oops`, wantErr: `unterminated ' quote`},
		{name: "unterminated escape", input: `wtype hello\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMustParseArgvPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseArgv(`wtype "unterminated`)
	})
}
