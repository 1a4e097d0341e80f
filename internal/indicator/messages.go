package indicator

import (
	"os"
	"strings"
)

// messages holds console and banner text. Entries ending in a verb take one
// %s argument.
type messages struct {
	listening       string
	recording       string
	stopped         string
	processing      string
	activated       string
	activatedBanner string
	expired         string
	typed           string
	typedWithEnter  string
	pressedEnter    string
	errorLine       string
	errorText       string
	shutdown        string
}

var emojiMessages = messages{
	listening:       "🔊 Listening for wake word '%s'... (Press Ctrl+C to quit)",
	recording:       "⚡ Recording...",
	stopped:         "🛑 Stopped recording",
	processing:      "Processing: %s",
	activated:       "⚡ Activated! Speak your command...",
	activatedBanner: "Listening…",
	expired:         "⌛ Activation expired",
	typed:           "✅ Typed: %s",
	typedWithEnter:  "✅ Typed: %s ⏎",
	pressedEnter:    "⏎ Pressed Enter",
	errorLine:       "❌ %s",
	errorText:       "Input injection error",
	shutdown:        "🛑 Shutting down...",
}

// plainMessages is used on terminals that cannot draw emoji.
var plainMessages = messages{
	listening:       "Listening for wake word '%s'... (Press Ctrl+C to quit)",
	recording:       "Recording...",
	stopped:         "Stopped recording",
	processing:      "Processing: %s",
	activated:       "Activated! Speak your command...",
	activatedBanner: "Listening...",
	expired:         "Activation expired",
	typed:           "Typed: %s",
	typedWithEnter:  "Typed: %s [Enter]",
	pressedEnter:    "Pressed Enter",
	errorLine:       "error: %s",
	errorText:       "Input injection error",
	shutdown:        "Shutting down...",
}

func messagesFromEnv() messages {
	return messagesForTerm(os.Getenv("TERM"))
}

// messagesForTerm picks plain text for the kernel console and dumb terminals.
func messagesForTerm(term string) messages {
	switch strings.ToLower(strings.TrimSpace(term)) {
	case "dumb", "linux", "vt100", "vt220":
		return plainMessages
	default:
		return emojiMessages
	}
}
