package tui

import (
	"fmt"
	"strings"
)

// Command is a parsed ":" command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":       "quit",
	"quit":    "quit",
	"exit":    "quit",
	"h":       "help",
	"help":    "help",
	"o":       "open",
	"open":    "open",
	"c":       "chat",
	"chat":    "chat",
	"login":   "login",
	"logout":  "logout",
	"reload":  "reload",
	"retry":   "reload",
	"refresh": "refresh",
}

var commandNeedsArgs = map[string]bool{"open": true, "chat": true}

// ParseCommand parses a command line without its leading ':'. Aliases are
// resolved to the canonical name.
func ParseCommand(input string) (Command, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	parts := strings.SplitN(input, " ", 2)
	raw := strings.ToLower(parts[0])
	if raw == "" {
		return Command{}, fmt.Errorf("empty command")
	}
	name, ok := commandAliases[raw]
	if !ok {
		return Command{}, fmt.Errorf("unknown command %q", raw)
	}
	cmd := Command{Name: name}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	if commandNeedsArgs[name] && cmd.Args == "" {
		return Command{}, fmt.Errorf(":%s needs an argument", name)
	}
	return cmd, nil
}
