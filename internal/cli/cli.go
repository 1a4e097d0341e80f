package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen     Command = "listen"
	CommandStatus     Command = "status"
	CommandActivate   Command = "activate"
	CommandDeactivate Command = "deactivate"
	CommandStop       Command = "stop"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:     {},
	CommandStatus:     {},
	CommandActivate:   {},
	CommandDeactivate: {},
	CommandStop:       {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse reads global flags and at most one trailing command. No command
// means listen.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandListen}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [command]

Commands:
  listen      Listen for the wake word and type dictation (default)
  status      Print the listener state (idle, activated, or stopped)
  activate    Arm dictation for the next utterance without the wake word
  deactivate  Disarm a pending activation
  stop        Shut down the running listener
  devices     List available input devices
  doctor      Run configuration and environment checks
  version     Print version information
  help        Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voce/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
