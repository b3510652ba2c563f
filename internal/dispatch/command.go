// ABOUTME: Parses prefixed bot commands out of message text
// ABOUTME: Recognizes support, close, cancel and getid; anything else is plain text

package dispatch

import "strings"

// Command is a recognized bot command.
type Command int

const (
	CommandNone Command = iota
	CommandSupport
	CommandClose
	CommandCancel
	CommandGetID
)

var commandNames = map[string]Command{
	"support": CommandSupport,
	"close":   CommandClose,
	"cancel":  CommandCancel,
	"getid":   CommandGetID,
}

func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "none"
}

// ParseCommand extracts a command from text. The command word must follow
// prefix immediately and is matched case-insensitively; trailing arguments
// are ignored. Returns CommandNone for anything else.
func ParseCommand(prefix, text string) Command {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return CommandNone
	}

	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return CommandNone
	}

	if cmd, ok := commandNames[strings.ToLower(fields[0])]; ok {
		return cmd
	}
	return CommandNone
}
