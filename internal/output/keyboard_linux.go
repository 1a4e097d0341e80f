//go:build linux

package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinput needs a moment before the new virtual device receives events.
const uinputWarmup = 2 * time.Second

type keystroke struct {
	code  int
	shift bool
}

// KeyboardInjector types through a uinput virtual keyboard.
type KeyboardInjector struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// NewKeyboardInjector creates the virtual keyboard; it needs write access to /dev/uinput.
func NewKeyboardInjector() (*KeyboardInjector, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	time.Sleep(uinputWarmup)
	return &KeyboardInjector{kb: kb}, nil
}

func (k *KeyboardInjector) TypeText(ctx context.Context, text string) error {
	strokes, err := keystrokesFor(text)
	if err != nil {
		return injectionError("type text", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, stroke := range strokes {
		if err := ctx.Err(); err != nil {
			return injectionError("type text", err)
		}
		if err := k.launch(stroke); err != nil {
			return injectionError("type text", err)
		}
	}
	return nil
}

func (k *KeyboardInjector) PressKey(ctx context.Context, key Key) error {
	if key != KeyEnter {
		return injectionError("press key", fmt.Errorf("unsupported key %q", key))
	}
	if err := ctx.Err(); err != nil {
		return injectionError("press key", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.launch(keystroke{code: keybd_event.VK_ENTER}); err != nil {
		return injectionError("press key", err)
	}
	return nil
}

func (k *KeyboardInjector) launch(stroke keystroke) error {
	k.kb.Clear()
	k.kb.HasSHIFT(stroke.shift)
	k.kb.SetKeys(stroke.code)
	return k.kb.Launching()
}

func keystrokesFor(text string) ([]keystroke, error) {
	strokes := make([]keystroke, 0, len(text))
	for _, r := range text {
		stroke, ok := keyFor(r)
		if !ok {
			return nil, fmt.Errorf("no key mapping for %q", r)
		}
		strokes = append(strokes, stroke)
	}
	return strokes, nil
}

var letterKeys = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digitKeys = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}

// symbolKeys follows a US layout.
var symbolKeys = map[rune]keystroke{
	' ':  {code: keybd_event.VK_SPACE},
	'\t': {code: keybd_event.VK_TAB},
	'\n': {code: keybd_event.VK_ENTER},
	'-':  {code: keybd_event.VK_MINUS},
	'_':  {code: keybd_event.VK_MINUS, shift: true},
	'=':  {code: keybd_event.VK_EQUAL},
	'+':  {code: keybd_event.VK_EQUAL, shift: true},
	'[':  {code: keybd_event.VK_LEFTBRACE},
	'{':  {code: keybd_event.VK_LEFTBRACE, shift: true},
	']':  {code: keybd_event.VK_RIGHTBRACE},
	'}':  {code: keybd_event.VK_RIGHTBRACE, shift: true},
	';':  {code: keybd_event.VK_SEMICOLON},
	':':  {code: keybd_event.VK_SEMICOLON, shift: true},
	'\'': {code: keybd_event.VK_APOSTROPHE},
	'"':  {code: keybd_event.VK_APOSTROPHE, shift: true},
	'`':  {code: keybd_event.VK_GRAVE},
	'~':  {code: keybd_event.VK_GRAVE, shift: true},
	'\\': {code: keybd_event.VK_BACKSLASH},
	'|':  {code: keybd_event.VK_BACKSLASH, shift: true},
	',':  {code: keybd_event.VK_COMMA},
	'<':  {code: keybd_event.VK_COMMA, shift: true},
	'.':  {code: keybd_event.VK_DOT},
	'>':  {code: keybd_event.VK_DOT, shift: true},
	'/':  {code: keybd_event.VK_SLASH},
	'?':  {code: keybd_event.VK_SLASH, shift: true},
	'!':  {code: keybd_event.VK_1, shift: true},
	'@':  {code: keybd_event.VK_2, shift: true},
	'#':  {code: keybd_event.VK_3, shift: true},
	'$':  {code: keybd_event.VK_4, shift: true},
	'%':  {code: keybd_event.VK_5, shift: true},
	'^':  {code: keybd_event.VK_6, shift: true},
	'&':  {code: keybd_event.VK_7, shift: true},
	'*':  {code: keybd_event.VK_8, shift: true},
	'(':  {code: keybd_event.VK_9, shift: true},
	')':  {code: keybd_event.VK_0, shift: true},
}

func keyFor(r rune) (keystroke, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return keystroke{code: letterKeys[r-'a']}, true
	case r >= 'A' && r <= 'Z':
		return keystroke{code: letterKeys[r-'A'], shift: true}, true
	case r >= '0' && r <= '9':
		return keystroke{code: digitKeys[r-'0']}, true
	}
	stroke, ok := symbolKeys[r]
	return stroke, ok
}
