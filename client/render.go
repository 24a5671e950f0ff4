package client

import (
	"regexp"
	"strings"

	"github.com/gookit/color"
)

// privatePattern matches the "<HH:MM> !sender: text" shape of a delivered
// private message.
var privatePattern = regexp.MustCompile(`^\d{2}:\d{2} !`)

var systemSuffixes = []string{
	"has joined the chat!",
	"has left the chat!",
	"has been kicked from the chat!",
}

// Renderer formats received server messages for the console. With Colours
// disabled every message renders as plain text.
type Renderer struct {
	Colours bool
}

// Render returns the message decorated for terminal output: room notices in
// yellow, private messages in magenta, moderation replies in red, everything
// else untouched.
//
// Parameters:
//   - text: The decoded server message
//
// Returns:
//   - The string to print
func (r Renderer) Render(text string) string {
	if !r.Colours {
		return text
	}

	switch {
	case r.isSystem(text):
		return color.New(color.FgYellow).Render(text)
	case privatePattern.MatchString(text):
		return color.New(color.FgMagenta).Render(text)
	case r.isModeration(text):
		return color.New(color.FgRed).Render(text)
	default:
		return text
	}
}

func (r Renderer) isSystem(text string) bool {
	if strings.HasPrefix(text, "Managers: ") {
		return true
	}

	for _, suffix := range systemSuffixes {
		if strings.HasSuffix(text, suffix) {
			return true
		}
	}

	return false
}

func (r Renderer) isModeration(text string) bool {
	return text == KickedNotice ||
		text == "You have been muted by a manager." ||
		text == "You cannot speak here."
}
