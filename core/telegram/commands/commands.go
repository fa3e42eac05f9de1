// Package commands defines the metadata attached to registered bot commands.
package commands

import tele "gopkg.in/telebot.v4"

// Command couples a handler with how the command is exposed: its menu
// description, whether it is hidden from the menu, and alternate names that
// resolve to it.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}
