package command

import "fmt"

// Kind enumerates what the dispatcher should do with one transcript.
type Kind int

const (
	KindIgnore Kind = iota
	KindActivate
	KindTypeText
	KindPressEnter
	KindTypeTextThenEnter
)

func (k Kind) String() string {
	switch k {
	case KindIgnore:
		return "ignore"
	case KindActivate:
		return "activate"
	case KindTypeText:
		return "type_text"
	case KindPressEnter:
		return "press_enter"
	case KindTypeTextThenEnter:
		return "type_text_then_enter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is one parsed instruction. Text is only set for the typing kinds.
type Action struct {
	Kind Kind
	Text string
}

func Ignore() Action { return Action{Kind: KindIgnore} }

func Activate() Action { return Action{Kind: KindActivate} }

func PressEnter() Action { return Action{Kind: KindPressEnter} }

func TypeText(text string) Action { return Action{Kind: KindTypeText, Text: text} }

func TypeTextThenEnter(text string) Action {
	return Action{Kind: KindTypeTextThenEnter, Text: text}
}

// Injects reports whether the action produces keyboard input.
func (a Action) Injects() bool {
	switch a.Kind {
	case KindTypeText, KindPressEnter, KindTypeTextThenEnter:
		return true
	default:
		return false
	}
}
