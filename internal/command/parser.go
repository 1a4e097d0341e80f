// Package command turns transcripts into dictation actions.
package command

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rbright/voce/internal/fsm"
)

const (
	DefaultWakeWord = "copy"
	enterWord       = "enter"
)

// trailingEnterPattern matches "<dictation> enter" with optional trailing punctuation.
var trailingEnterPattern = regexp.MustCompile(`(?is)^(.*?)\b` + enterWord + `\b[[:punct:]\s]*$`)

// Decision is the parser output: the action to dispatch and the state event to apply.
type Decision struct {
	Action Action
	Event  fsm.Event
}

// Options tunes parser behavior.
type Options struct {
	WakeWord string
	// StrictEnter disables the "enter anywhere" fallback so only a trailing
	// "enter" presses the key.
	StrictEnter bool
}

// Parser classifies transcripts against the current activation state.
type Parser struct {
	wakeWord    string
	wakeFold    *regexp.Regexp
	strictEnter bool
}

// NewParser compiles the wake word matcher.
func NewParser(opts Options) (*Parser, error) {
	word := strings.ToLower(strings.TrimSpace(opts.WakeWord))
	if word == "" {
		word = DefaultWakeWord
	}
	if len(Normalize(word)) != 1 || Normalize(word)[0] != word {
		return nil, fmt.Errorf("wake word %q must be a single alphabetic word", opts.WakeWord)
	}
	if word == enterWord {
		return nil, fmt.Errorf("wake word cannot be %q", enterWord)
	}

	return &Parser{
		wakeWord:    word,
		wakeFold:    regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word)),
		strictEnter: opts.StrictEnter,
	}, nil
}

// WakeWord returns the normalized wake word.
func (p *Parser) WakeWord() string {
	return p.wakeWord
}

// Parse classifies one transcript. It never mutates state; callers apply
// Decision.Event through fsm.Transition.
func (p *Parser) Parse(transcript string, state fsm.State) Decision {
	if strings.TrimSpace(transcript) == "" {
		return Decision{Action: Ignore(), Event: fsm.EventStay}
	}

	if state == fsm.StateActivated {
		return Decision{Action: p.classify(strings.TrimSpace(transcript)), Event: fsm.EventConsume}
	}

	spans := p.wakeSpans(transcript)
	if len(spans) == 0 {
		return Decision{Action: Ignore(), Event: fsm.EventStay}
	}

	command := stripSpans(transcript, spans)
	if strings.TrimFunc(command, isSpaceOrPunct) == "" {
		return Decision{Action: Activate(), Event: fsm.EventWake}
	}
	return Decision{Action: p.classify(command), Event: fsm.EventStay}
}

// classify applies the enter rules to dictation text.
func (p *Parser) classify(text string) Action {
	if match := trailingEnterPattern.FindStringSubmatch(text); match != nil {
		leading := strings.TrimSpace(match[1])
		if leading == "" {
			return PressEnter()
		}
		return TypeTextThenEnter(leading)
	}

	if !p.strictEnter && containsWord(text, enterWord) {
		return PressEnter()
	}

	return TypeText(text)
}

// wakeSpans returns the byte ranges of whole-word wake word occurrences.
// Word boundaries are Unicode-aware, so "copyé" and "écopy" do not match.
func (p *Parser) wakeSpans(text string) [][]int {
	var spans [][]int
	for _, loc := range p.wakeFold.FindAllStringIndex(text, -1) {
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if loc[0] > 0 && isWordRune(before) {
			continue
		}
		if loc[1] < len(text) && isWordRune(after) {
			continue
		}
		spans = append(spans, loc)
	}
	return spans
}

// stripSpans cuts spans out of text and trims leading separators and
// surrounding whitespace. Interior spacing is left as dictated, except that
// a removed word does not leave a doubled gap behind.
func stripSpans(text string, spans [][]int) string {
	var b strings.Builder
	last := 0
	for _, span := range append(spans, []int{len(text), len(text)}) {
		chunk := text[last:span[0]]
		if last > 0 && endsWithSpace(b.String()) {
			chunk = strings.TrimLeftFunc(chunk, unicode.IsSpace)
		}
		b.WriteString(chunk)
		last = span[1]
	}
	return strings.TrimRightFunc(strings.TrimLeftFunc(b.String(), isSpaceOrPunct), unicode.IsSpace)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return s != "" && unicode.IsSpace(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isSpaceOrPunct(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}
