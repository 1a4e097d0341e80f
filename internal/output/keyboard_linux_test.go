//go:build linux

package output

import (
	"testing"

	"github.com/micmonay/keybd_event"
	"github.com/stretchr/testify/require"
)

func TestKeystrokesForMapsUSLayout(t *testing.T) {
	strokes, err := keystrokesFor("Hi, 2?")
	require.NoError(t, err)
	require.Equal(t, []keystroke{
		{code: keybd_event.VK_H, shift: true},
		{code: keybd_event.VK_I},
		{code: keybd_event.VK_COMMA},
		{code: keybd_event.VK_SPACE},
		{code: keybd_event.VK_2},
		{code: keybd_event.VK_SLASH, shift: true},
	}, strokes)
}

func TestKeystrokesForRejectsUnmappedRunes(t *testing.T) {
	_, err := keystrokesFor("café")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no key mapping")
}
